package run

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/jq"
	"github.com/Jasbris/polarion-node/internal/operation"
)

// Output formats for --output.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// runResponse is the --json envelope of a run.
type runResponse struct {
	shared.JSONResponse
	RunID     string      `json:"runId"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Records   interface{} `json:"records"`
}

// transform applies the --jq expression to the records.
func transform(ctx context.Context, records []operation.Record, expr string) (interface{}, error) {
	if records == nil {
		records = []operation.Record{}
	}
	if expr == "" {
		return records, nil
	}
	out, err := jq.NewExecutor(0, 0).Execute(ctx, expr, records)
	if err != nil {
		return nil, fmt.Errorf("--jq: %w", err)
	}
	return out, nil
}

// writeOutput encodes v in format.
func writeOutput(w io.Writer, v interface{}, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return shared.EmitJSON(w, v)
	}
}
