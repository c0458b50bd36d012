package run

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/operation"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// itemFlags are the flags that describe a single item.
type itemFlags struct {
	resource  string
	operation string
	id        string
	query     string
	data      string
	fields    string
	limit     int
	skip      int
	params    []string

	// changed reports whether a flag was set on the command line.
	changed func(name string) bool
}

// values collects the set flags as item key/value pairs.
func (f *itemFlags) values() (url.Values, error) {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}

	set(polarion.FieldResource, f.resource)
	set(polarion.FieldOperation, f.operation)
	set(polarion.FieldQuery, f.query)
	set(polarion.FieldFields, f.fields)
	if f.changed("limit") {
		values.Set(polarion.FieldLimit, strconv.Itoa(f.limit))
	}
	if f.changed("skip") {
		values.Set(polarion.FieldSkip, strconv.Itoa(f.skip))
	}

	if f.data != "" {
		data, err := readData(f.data)
		if err != nil {
			return nil, err
		}
		values.Set(polarion.FieldData, data)
	}

	if f.id != "" {
		field := polarion.IDField(polarion.Resource(f.resource))
		if field == "" {
			return nil, &pkgerrors.ValidationError{
				Field:      "id",
				Message:    "--id requires a known --resource",
				Suggestion: "Run 'polarion-node resources' to list resources",
			}
		}
		values.Set(field, f.id)
	}

	for _, p := range f.params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, &pkgerrors.ValidationError{
				Field:      "param",
				Message:    fmt.Sprintf("%q is not in key=value format", p),
				Suggestion: "Use --param workItemId=WI-1 or --param options.limit=10",
			}
		}
		values.Set(key, value)
	}
	return values, nil
}

// readData returns the --data value, reading it from a file when it starts
// with '@'.
func readData(data string) (string, error) {
	path, ok := strings.CutPrefix(data, "@")
	if !ok {
		return data, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read data file: %w", err)
	}
	return string(raw), nil
}

// flagItem builds the item described by the flags alone.
func flagItem(f *itemFlags) (operation.Params, error) {
	values, err := f.values()
	if err != nil {
		return nil, err
	}
	item, err := polarion.ItemFromValues(values)
	if err != nil {
		return nil, err
	}
	return item.Params()
}

// buildItems returns the run's input items. Without --input the flags form a
// single item. With --input every item is read from the matching files and
// the flags fill in keys an item leaves out.
func buildItems(f *itemFlags, input string, stdin io.Reader) ([]operation.Params, error) {
	defaults, err := flagItem(f)
	if err != nil {
		return nil, err
	}
	if input == "" {
		return []operation.Params{defaults}, nil
	}

	items, err := loadItems(input, stdin)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		mergeDefaults(item, defaults)
	}
	return items, nil
}

// mergeDefaults copies keys of defaults that item does not set. Options are
// merged key by key.
func mergeDefaults(item, defaults operation.Params) {
	for key, value := range defaults {
		existing, ok := item[key]
		if !ok {
			if m, isMap := value.(map[string]interface{}); isMap {
				value = maps.Clone(m)
			}
			item[key] = value
			continue
		}
		if key != "options" {
			continue
		}
		have, ok1 := existing.(map[string]interface{})
		want, ok2 := value.(map[string]interface{})
		if !ok1 || !ok2 {
			continue
		}
		for k, v := range want {
			if _, ok := have[k]; !ok {
				have[k] = v
			}
		}
	}
}

// loadItems reads items from stdin ("-") or from every file matching the
// glob pattern, in lexical path order.
func loadItems(pattern string, stdin io.Reader) ([]operation.Params, error) {
	if pattern == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		items, err := parseJSON(data)
		if err != nil {
			if items, yerr := parseYAML(data); yerr == nil {
				return items, nil
			}
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return items, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid input pattern %q", pattern)
	}
	if len(matches) == 0 {
		return nil, &pkgerrors.ValidationError{
			Field:   "input",
			Message: fmt.Sprintf("no files match %q", pattern),
		}
	}
	slices.Sort(matches)

	var items []operation.Params
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		fileItems, err := parseDocument(path, data)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s", path)
		}
		items = append(items, fileItems...)
	}
	return items, nil
}

// parseDocument decodes a file of items by extension: YAML for .yaml and
// .yml, JSON otherwise.
func parseDocument(path string, data []byte) ([]operation.Params, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

// parseJSON accepts an array of items, a single item, or one item per line.
func parseJSON(data []byte) ([]operation.Params, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var items []operation.Params
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		decoded, err := toItems(v)
		if err != nil {
			return nil, err
		}
		items = append(items, decoded...)
	}
	return items, nil
}

// parseYAML accepts a list of items or a single item, across any number of
// documents.
func parseYAML(data []byte) ([]operation.Params, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var items []operation.Params
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		decoded, err := toItems(v)
		if err != nil {
			return nil, err
		}
		items = append(items, decoded...)
	}
	return items, nil
}

func toItems(v interface{}) ([]operation.Params, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return []operation.Params{t}, nil
	case []interface{}:
		items := make([]operation.Params, 0, len(t))
		for i, elem := range t {
			m, ok := elem.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want an object", i, elem)
			}
			items = append(items, m)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("input is %T, want an object or a list of objects", v)
	}
}
