// Package jq applies jq expressions to node output for the --jq flag.
package jq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds one evaluation.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxInputSize is the largest input accepted, in encoded JSON bytes.
	DefaultMaxInputSize = 50 * 1024 * 1024
)

// Executor evaluates jq expressions with a timeout and an input size limit.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates an executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Execute evaluates expression against data. A single result is returned
// as is, several results as a slice, none as nil. An empty expression
// returns data unchanged.
func (e *Executor) Execute(ctx context.Context, expression string, data interface{}) (interface{}, error) {
	if expression == "" {
		return data, nil
	}
	results, err := e.Run(ctx, expression, data)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Run evaluates expression against data and returns every emitted value.
func (e *Executor) Run(ctx context.Context, expression string, data interface{}) ([]interface{}, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}
	input, err := e.normalize(data)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var results []interface{}
	iter := code.RunWithContext(execCtx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("execution timeout after %v", e.timeout)
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

// Validate reports whether expression parses and compiles.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}

// normalize converts data into the plain JSON types gojq accepts and
// enforces the size limit on the way.
func (e *Executor) normalize(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	if int64(len(raw)) > e.maxInputSize {
		return nil, fmt.Errorf("data size (%d bytes) exceeds maximum (%d bytes)", len(raw), e.maxInputSize)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to normalize data: %w", err)
	}
	return v, nil
}
