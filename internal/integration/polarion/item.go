package polarion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/gorilla/schema"

	"github.com/Jasbris/polarion-node/internal/operation"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// Item holds the parameters of one input item.
type Item struct {
	Resource   Resource  `json:"resource" schema:"resource"`
	Operation  Operation `json:"operation" schema:"operation"`
	WorkItemID string    `json:"workItemId,omitempty" schema:"workItemId"`
	DocumentID string    `json:"documentId,omitempty" schema:"documentId"`
	ProjectID  string    `json:"projectId,omitempty" schema:"projectId"`
	ResourceID string    `json:"resourceId,omitempty" schema:"resourceId"`
	Query      string    `json:"query,omitempty" schema:"query"`
	Data       Payload   `json:"data,omitzero" schema:"data"`
	Options    Options   `json:"options,omitzero" schema:"options"`
}

// Options are the optional list/get modifiers.
type Options struct {
	// Fields is a comma-separated field selection.
	Fields string `json:"fields,omitempty" schema:"fields"`
	Limit  *int   `json:"limit,omitempty" schema:"limit"`
	Skip   *int   `json:"skip,omitempty" schema:"skip"`
}

// Identifier returns the value of the identifier field named by field.
func (i *Item) Identifier(field string) string {
	switch field {
	case FieldWorkItemID:
		return i.WorkItemID
	case FieldDocumentID:
		return i.DocumentID
	case FieldProjectID:
		return i.ProjectID
	case FieldResourceID:
		return i.ResourceID
	default:
		return ""
	}
}

// Params converts the item back into generic runner parameters.
func (i *Item) Params() (operation.Params, error) {
	raw, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	var params operation.Params
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// DecodeItem converts runner parameters into an Item. Unknown keys are ignored.
// Numeric identifiers, as YAML and JSON inputs produce for "resourceId: 42",
// are accepted and converted to their decimal text.
func DecodeItem(params operation.Params) (*Item, error) {
	raw, err := json.Marshal(identifiersAsText(params))
	if err != nil {
		return nil, &pkgerrors.ValidationError{Message: fmt.Sprintf("item parameters are not serializable: %v", err)}
	}
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, &pkgerrors.ValidationError{
			Message:    fmt.Sprintf("invalid item parameters: %v", err),
			Suggestion: "options.limit and options.skip must be integers; identifiers must be strings or numbers",
		}
	}
	return &item, nil
}

var identifierFields = []string{FieldWorkItemID, FieldDocumentID, FieldProjectID, FieldResourceID}

// identifiersAsText returns params with numeric identifier values replaced by
// strings. params itself is not modified.
func identifiersAsText(params operation.Params) operation.Params {
	var out operation.Params
	for _, field := range identifierFields {
		text, ok := numberText(params[field])
		if !ok {
			continue
		}
		if out == nil {
			out = make(operation.Params, len(params))
			for k, v := range params {
				out[k] = v
			}
		}
		out[field] = text
	}
	if out == nil {
		return params
	}
	return out
}

func numberText(v interface{}) (string, bool) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(n), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), true
	case json.Number:
		return n.String(), true
	default:
		return "", false
	}
}

var valuesDecoder = newValuesDecoder()

func newValuesDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(Payload{}, func(s string) reflect.Value {
		return reflect.ValueOf(PayloadFromText(s))
	})
	return d
}

// ItemFromValues decodes key=value pairs such as "workItemId=WI-1" or
// "options.limit=10" into an Item.
func ItemFromValues(values url.Values) (*Item, error) {
	var item Item
	if err := valuesDecoder.Decode(&item, values); err != nil {
		return nil, &pkgerrors.ValidationError{Message: err.Error()}
	}
	return &item, nil
}

// Payload is the create/update body as supplied by the caller. It is either
// JSON text still to be parsed, or an already structured value taken from a
// JSON or YAML input document.
type Payload struct {
	text    string
	value   json.RawMessage
	present bool
}

// PayloadFromText wraps JSON text. Parsing is deferred to Decode.
func PayloadFromText(text string) Payload {
	return Payload{text: text, present: true}
}

// PayloadFromValue wraps an already structured value.
func PayloadFromValue(v interface{}) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{value: raw, present: true}, nil
}

// IsZero reports whether no payload was supplied.
func (p Payload) IsZero() bool {
	return !p.present
}

// Decode parses the payload into a generic JSON value.
func (p Payload) Decode() (interface{}, error) {
	if !p.present {
		return nil, &PayloadParseError{Reason: "no payload supplied"}
	}

	raw := []byte(p.text)
	if p.value != nil {
		raw = p.value
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &PayloadParseError{Reason: "payload is empty"}
	}

	var body interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &PayloadParseError{Reason: "payload is not valid JSON", Cause: err}
	}
	return body, nil
}

// UnmarshalJSON accepts a JSON string (JSON text to parse later) or any
// other JSON value (used as the payload directly).
func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*p = Payload{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*p = PayloadFromText(text)
		return nil
	}
	*p = Payload{value: append(json.RawMessage(nil), trimmed...), present: true}
	return nil
}

// MarshalJSON writes text payloads as a JSON string and structured payloads
// as themselves.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch {
	case !p.present:
		return []byte("null"), nil
	case p.value != nil:
		return p.value, nil
	default:
		return json.Marshal(p.text)
	}
}
