package run

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/completion"
	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/operation"
)

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var (
		flags          itemFlags
		input          string
		continueOnFail bool
		jqExpr         string
		outputFormat   string
		metricsFile    string
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute Polarion operations",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Run sends one request per input item to the Polarion REST API and prints
the resulting records.

A single item is described with flags:
  polarion-node run --resource workitems --operation list --query "type:task"
  polarion-node run --resource documents --operation get --id "Space/Spec"
  polarion-node run --resource projects --operation create --data @project.json

Batches are read with --input from a file, a glob or stdin ('-'). Files hold
a JSON array, JSON lines, or a YAML list of items. Flags fill in keys an
item leaves out.

List results are flattened: each element of the response "data" array is
one record. With --continue-on-fail a failed item yields an
{"error", "itemIndex"} record instead of aborting the run.

Exit codes:
  0  success
  1  request or run failure
  2  invalid input
  3  missing or unusable credential`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.changed = cmd.Flags().Changed
			if outputFormat != FormatJSON && outputFormat != FormatYAML {
				return shared.NewInvalidInputError(fmt.Sprintf("unsupported output format %q", outputFormat), nil)
			}

			items, err := buildItems(&flags, input, cmd.InOrStdin())
			if err != nil {
				return shared.NewInvalidInputError("invalid input", err)
			}

			if dryRun {
				return printPlan(cmd.OutOrStdout(), items, outputFormat)
			}
			return execute(cmd.Context(), cmd.OutOrStdout(), items, runSettings{
				continueOnFail: continueOnFail,
				jq:             jqExpr,
				format:         outputFormat,
				metricsFile:    metricsFile,
			})
		},
	}

	cmd.Flags().StringVarP(&flags.resource, "resource", "r", "", "Resource to operate on (see 'polarion-node resources')")
	cmd.Flags().StringVarP(&flags.operation, "operation", "o", "", "Operation: list, get, create, update, delete")
	cmd.Flags().StringVar(&flags.id, "id", "", "Identifier of the target entity for get, update and delete")
	cmd.Flags().StringVar(&flags.query, "query", "", "Query filter for work item lists")
	cmd.Flags().StringVar(&flags.data, "data", "", "JSON body for create and update (prefix with @ to read a file)")
	cmd.Flags().StringVar(&flags.fields, "fields", "", "Comma-separated field selection")
	cmd.Flags().IntVar(&flags.limit, "limit", polarion.DefaultLimit, "Maximum number of list results")
	cmd.Flags().IntVar(&flags.skip, "skip", polarion.DefaultSkip, "Number of list results to skip")
	cmd.Flags().StringArrayVarP(&flags.params, "param", "p", nil, "Item parameter in key=value format (repeatable)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Items file, glob, or '-' for stdin")
	cmd.Flags().BoolVar(&continueOnFail, "continue-on-fail", false, "Record failed items and keep going")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "jq expression applied to the records")
	cmd.Flags().StringVar(&outputFormat, "output", FormatJSON, "Output format: json or yaml")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the requests without sending them")

	_ = cmd.RegisterFlagCompletionFunc("resource", completion.CompleteResources)
	_ = cmd.RegisterFlagCompletionFunc("operation", completion.CompleteOperations)
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{FormatJSON, FormatYAML}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

type runSettings struct {
	continueOnFail bool
	jq             string
	format         string
	metricsFile    string
}

func execute(ctx context.Context, w io.Writer, items []operation.Params, settings runSettings) error {
	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	if settings.metricsFile != "" {
		rt.Config.Metrics.TextfilePath = settings.metricsFile
	}
	defer rt.Shutdown(ctx)

	node, err := rt.Registry.Get(polarion.NodeName)
	if err != nil {
		return shared.NewExecutionError("node unavailable", err)
	}

	runner := operation.NewRunner(operation.WithLogger(rt.Logger))
	result, runErr := runner.Run(ctx, node, items, operation.RunOptions{ContinueOnFail: settings.continueOnFail})
	if runErr != nil {
		return shared.Classify("run failed", runErr)
	}

	out, err := transform(ctx, result.Records, settings.jq)
	if err != nil {
		return shared.NewInvalidInputError("failed to transform output", err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(w, runResponse{
			JSONResponse: shared.NewJSONResponse("run"),
			RunID:        result.RunID,
			Processed:    result.Processed,
			Failed:       result.Failed,
			Records:      out,
		})
	}
	return writeOutput(w, out, settings.format)
}

// plannedRequest is one entry of --dry-run output.
type plannedRequest struct {
	ItemIndex int    `json:"itemIndex" yaml:"itemIndex"`
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Query     string `json:"query,omitempty" yaml:"query,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// printPlan resolves each item to its request without sending anything.
func printPlan(w io.Writer, items []operation.Params, format string) error {
	plan := make([]plannedRequest, 0, len(items))
	for index, params := range items {
		entry := plannedRequest{ItemIndex: index}
		item, err := polarion.DecodeItem(params)
		if err == nil {
			var spec *polarion.RequestSpec
			spec, err = polarion.Resolve(item)
			if err == nil {
				entry.Method = spec.Method
				entry.Path = spec.Path
				entry.Query = spec.Query.Encode()
			}
		}
		if err != nil {
			entry.Error = err.Error()
		}
		plan = append(plan, entry)
	}
	return writeOutput(w, plan, format)
}
