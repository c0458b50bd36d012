package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryConfig_Validate(t *testing.T) {
	if err := DefaultRetryConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := NoRetry().Validate(); err != nil {
		t.Errorf("NoRetry config invalid: %v", err)
	}

	bad := []*RetryConfig{
		{MaxAttempts: 0, BackoffFactor: 2},
		{MaxAttempts: 1, InitialBackoff: -1, BackoffFactor: 2},
		{MaxAttempts: 1, InitialBackoff: 2 * time.Second, MaxBackoff: time.Second, BackoffFactor: 2},
		{MaxAttempts: 1, BackoffFactor: 0.5},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestExecute_NonTransportErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), fastRetry(), func(context.Context) (*Response, error) {
		calls++
		return nil, errors.New("boom")
	})
	if err == nil || calls != 1 {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), fastRetry(), func(context.Context) (*Response, error) {
		calls++
		return nil, &TransportError{Type: ErrorTypeServer, StatusCode: 500, Retryable: true}
	})
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != 500 {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := &RetryConfig{InitialBackoff: time.Second, MaxBackoff: 4 * time.Second, BackoffFactor: 2}

	tests := []struct {
		attempt    int
		retryAfter time.Duration
		min, max   time.Duration
	}{
		{attempt: 1, min: time.Second, max: time.Second + 100*time.Millisecond},
		{attempt: 2, min: 2 * time.Second, max: 2*time.Second + 100*time.Millisecond},
		{attempt: 5, min: 4 * time.Second, max: 4*time.Second + 100*time.Millisecond},
		{attempt: 1, retryAfter: 3 * time.Second, min: 3 * time.Second, max: 3*time.Second + 100*time.Millisecond},
		{attempt: 1, retryAfter: time.Minute, min: 4 * time.Second, max: 4*time.Second + 100*time.Millisecond},
	}

	for _, tt := range tests {
		got := calculateBackoff(cfg, tt.attempt, tt.retryAfter)
		if got < tt.min || got > tt.max {
			t.Errorf("calculateBackoff(%d, %v) = %v, want [%v, %v]", tt.attempt, tt.retryAfter, got, tt.min, tt.max)
		}
	}
}

func TestExtractRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  time.Duration
	}{
		{name: "seconds", value: "7", want: 7 * time.Second},
		{name: "malformed", value: "soon", want: 0},
		{name: "past date", value: "Wed, 21 Oct 2015 07:28:00 GMT", want: 0},
		{name: "wrong type", value: 7, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &TransportError{Metadata: map[string]interface{}{MetadataRetryAfter: tt.value}}
			if got := extractRetryAfter(err); got != tt.want {
				t.Errorf("extractRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := extractRetryAfter(&TransportError{}); got != 0 {
		t.Errorf("nil metadata = %v", got)
	}
}
