package operation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// fakeNode echoes each item's "id" param and fails for configured indices.
type fakeNode struct {
	name    string
	failAt  map[int]error
	invoked []int
	perItem int
}

func (n *fakeNode) Name() string { return n.name }

func (n *fakeNode) ExecuteItem(_ context.Context, params Params, index int) ([]Record, error) {
	n.invoked = append(n.invoked, index)
	if err, ok := n.failAt[index]; ok {
		return nil, err
	}
	count := n.perItem
	if count == 0 {
		count = 1
	}
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, Record{"id": params["id"], "n": i})
	}
	return records, nil
}

func items(n int) []Params {
	out := make([]Params, n)
	for i := range out {
		out[i] = Params{"id": fmt.Sprintf("item-%d", i)}
	}
	return out
}

func TestRunner_AllSucceed(t *testing.T) {
	node := &fakeNode{name: "all-succeed", perItem: 2}

	result, err := NewRunner().Run(context.Background(), node, items(3), RunOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Records, 6)
	assert.Equal(t, "item-0", result.Records[0]["id"])
	assert.Equal(t, "item-2", result.Records[5]["id"])
	assert.Equal(t, []int{0, 1, 2}, node.invoked)
}

func TestRunner_ContinueOnFail(t *testing.T) {
	node := &fakeNode{
		name:   "continue-on-fail",
		failAt: map[int]error{1: errors.New("payload is not valid JSON")},
	}

	result, err := NewRunner().Run(context.Background(), node, items(4), RunOptions{ContinueOnFail: true})
	require.NoError(t, err)

	require.Len(t, result.Records, 4, "one record per item, failed item included")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, Record{"error": "payload is not valid JSON", "itemIndex": 1}, result.Records[1])
	assert.Equal(t, "item-2", result.Records[2]["id"])
	assert.Equal(t, []int{0, 1, 2, 3}, node.invoked)
}

func TestRunner_AbortOnFirstFailure(t *testing.T) {
	cause := errors.New("HTTP 404")
	node := &fakeNode{name: "abort", failAt: map[int]error{1: cause}}

	result, err := NewRunner().Run(context.Background(), node, items(4), RunOptions{})
	require.Error(t, err)

	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 1, itemErr.Index)
	assert.ErrorIs(t, err, cause)

	require.Len(t, result.Records, 1, "only items before the failure produce output")
	assert.Equal(t, "item-0", result.Records[0]["id"])
	assert.Equal(t, []int{0, 1}, node.invoked, "items after the failure must not run")
}

func TestRunner_FatalErrorAbortsEvenWhenTolerant(t *testing.T) {
	fatal := &pkgerrors.ConfigError{Key: "credentials", Reason: "no credential stored"}
	node := &fakeNode{name: "fatal", failAt: map[int]error{0: fatal}}

	result, err := NewRunner().Run(context.Background(), node, items(3), RunOptions{ContinueOnFail: true})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsFatal(err))
	assert.Empty(t, result.Records)
	assert.Equal(t, []int{0}, node.invoked)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	node := &fakeNode{name: "cancelled"}
	_, err := NewRunner().Run(ctx, node, items(2), RunOptions{ContinueOnFail: true})

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrorTypeCancelled, opErr.Type)
	assert.Empty(t, node.invoked)
}

func TestRunner_EmptyInput(t *testing.T) {
	result, err := NewRunner().Run(context.Background(), &fakeNode{name: "empty"}, nil, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Processed)
}

func TestRunner_Metrics(t *testing.T) {
	node := &fakeNode{name: "metrics", failAt: map[int]error{2: errors.New("boom")}}

	_, err := NewRunner().Run(context.Background(), node, items(3), RunOptions{ContinueOnFail: true})
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(itemsTotal.WithLabelValues("metrics", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(itemsTotal.WithLabelValues("metrics", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runsTotal.WithLabelValues("metrics", "completed")))
}

func TestRunner_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	node := &fakeNode{name: "spans", failAt: map[int]error{1: errors.New("boom")}}
	runner := NewRunner(WithTracer(tp.Tracer("test")))

	_, err := runner.Run(context.Background(), node, items(2), RunOptions{ContinueOnFail: true})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3, "one run span and one span per item")

	names := map[string]int{}
	for _, s := range spans {
		names[s.Name]++
	}
	assert.Equal(t, 2, names["node.item"])
	assert.Equal(t, 1, names["node.run"])
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeNode{name: "b"})
	reg.Register(&fakeNode{name: "a"})

	assert.Equal(t, []string{"a", "b"}, reg.List())

	node, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", node.Name())

	_, err = reg.Get("missing")
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrorTypeNotFound, opErr.Type)
	var notFound *pkgerrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.ID)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := map[int]ErrorType{
		401: ErrorTypeAuth,
		403: ErrorTypeAuth,
		404: ErrorTypeNotFound,
		400: ErrorTypeValidation,
		409: ErrorTypeValidation,
		408: ErrorTypeTimeout,
		429: ErrorTypeRateLimit,
		500: ErrorTypeServer,
		503: ErrorTypeServer,
	}
	for code, want := range tests {
		assert.Equal(t, want, ClassifyHTTPError(code), "status %d", code)
	}
	assert.True(t, ErrorTypeServer.Retryable())
	assert.False(t, ErrorTypeAuth.Retryable())
}
