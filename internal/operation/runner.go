package operation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nodelog "github.com/Jasbris/polarion-node/internal/log"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

const tracerName = "github.com/Jasbris/polarion-node/internal/operation"

// RunOptions controls a single run.
type RunOptions struct {
	// ContinueOnFail records item failures as error records instead of
	// aborting the run. Fatal errors abort regardless.
	ContinueOnFail bool
}

// RunResult is the outcome of a run.
type RunResult struct {
	// RunID uniquely identifies the run in logs and traces.
	RunID string

	// Records are the output records in item order.
	Records []Record

	// Processed is the number of items the node was invoked for.
	Processed int

	// Failed is the number of items that returned an error.
	Failed int
}

// Runner drives a node over a list of input items.
type Runner struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run and item spans.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// NewRunner creates a runner. By default it logs nowhere and uses the global
// OpenTelemetry tracer provider.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: nodelog.Discard(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes node once per item, in order. On abort the returned result
// holds the records of the items that completed before the failure, and
// the error is an *ItemError naming the failing index.
func (r *Runner) Run(ctx context.Context, node Node, items []Params, opts RunOptions) (*RunResult, error) {
	result := &RunResult{
		RunID:   uuid.NewString(),
		Records: make([]Record, 0, len(items)),
	}
	logger := nodelog.WithRunContext(r.logger, result.RunID, node.Name())

	ctx, span := r.tracer.Start(ctx, "node.run", trace.WithAttributes(
		attribute.String("node.name", node.Name()),
		attribute.String("run.id", result.RunID),
		attribute.Int("run.items", len(items)),
		attribute.Bool("run.continue_on_fail", opts.ContinueOnFail),
	))
	defer span.End()

	logger.Debug("run started", slog.Int("items", len(items)), slog.Bool("continue_on_fail", opts.ContinueOnFail))

	for index, params := range items {
		if err := ctx.Err(); err != nil {
			runsTotal.WithLabelValues(node.Name(), "aborted").Inc()
			span.SetStatus(codes.Error, "cancelled")
			return result, &ItemError{Index: index, Err: &Error{
				Type:    ErrorTypeCancelled,
				Message: "run cancelled",
				Cause:   err,
			}}
		}

		records, err := r.runItem(ctx, logger, node, params, index)
		result.Processed++
		if err == nil {
			result.Records = append(result.Records, records...)
			continue
		}

		result.Failed++
		if !opts.ContinueOnFail || pkgerrors.IsFatal(err) || ctx.Err() != nil {
			logger.Warn("run aborted", slog.Int(nodelog.ItemIndexKey, index), nodelog.Error(err))
			runsTotal.WithLabelValues(node.Name(), "aborted").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, &ItemError{Index: index, Err: err}
		}

		logger.Warn("item failed, continuing", slog.Int(nodelog.ItemIndexKey, index), nodelog.Error(err))
		result.Records = append(result.Records, ErrorRecord(err, index))
	}

	runsTotal.WithLabelValues(node.Name(), "completed").Inc()
	span.SetAttributes(attribute.Int("run.failed", result.Failed), attribute.Int("run.records", len(result.Records)))
	logger.Debug("run completed", slog.Int("records", len(result.Records)), slog.Int("failed", result.Failed))
	return result, nil
}

func (r *Runner) runItem(ctx context.Context, logger *slog.Logger, node Node, params Params, index int) ([]Record, error) {
	ctx, span := r.tracer.Start(ctx, "node.item", trace.WithAttributes(
		attribute.String("node.name", node.Name()),
		attribute.Int("item.index", index),
	))
	defer span.End()

	start := time.Now()
	records, err := node.ExecuteItem(ctx, params, index)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("item.records", len(records)))
	}
	recordItem(node.Name(), status, duration)

	logger.Debug("item processed",
		slog.Int(nodelog.ItemIndexKey, index),
		slog.String("status", status),
		slog.Int("records", len(records)),
		slog.Int64(nodelog.DurationKey, duration.Milliseconds()))

	return records, err
}
