package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"time"
)

// RetryConfig configures retry behavior for idempotent requests.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first (default: 3).
	// 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration (default: 1s)
	InitialBackoff time.Duration

	// MaxBackoff caps both the computed backoff and Retry-After (default: 30s)
	MaxBackoff time.Duration

	// BackoffFactor is the exponential backoff multiplier (default: 2.0)
	BackoffFactor float64

	// RetryableStatus lists HTTP status codes that are retried.
	// Default: [408, 429, 500, 502, 503, 504]
	RetryableStatus []int
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      30 * time.Second,
		BackoffFactor:   2.0,
		RetryableStatus: []int{408, 429, 500, 502, 503, 504},
	}
}

// NoRetry returns a configuration that performs exactly one attempt.
func NoRetry() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

// Validate checks if the retry configuration is valid.
func (c *RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be non-negative, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0, got %f", c.BackoffFactor)
	}
	return nil
}

// IsRetryable returns true if the given status code should be retried.
func (c *RetryConfig) IsRetryable(statusCode int) bool {
	return slices.Contains(c.RetryableStatus, statusCode)
}

// ExecuteFunc executes a single request attempt.
type ExecuteFunc func(ctx context.Context) (*Response, error)

// Execute runs fn with exponential backoff, jitter and Retry-After handling.
//
// Retry behavior:
//   - Retries connection errors, timeouts and the configured status codes
//   - Never retries other 4xx responses
//   - Honors Retry-After on 429 and 503, capped at MaxBackoff
//   - Stops immediately on context cancellation
func Execute(ctx context.Context, config *RetryConfig, fn ExecuteFunc) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			if resp.Metadata == nil {
				resp.Metadata = make(map[string]interface{})
			}
			resp.Metadata[MetadataRetryCount] = attempt - 1
			return resp, nil
		}
		lastErr = err

		shouldRetry, retryAfter := shouldRetryError(err, config)
		if attempt >= config.MaxAttempts || !shouldRetry {
			return nil, err
		}

		if ctx.Err() != nil {
			return nil, &TransportError{
				Type:    ErrorTypeCancelled,
				Message: "request cancelled before retry",
				Cause:   ctx.Err(),
			}
		}

		timer := time.NewTimer(calculateBackoff(config, attempt, retryAfter))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, &TransportError{
				Type:    ErrorTypeCancelled,
				Message: "request cancelled during retry backoff",
				Cause:   ctx.Err(),
			}
		}
	}

	return nil, lastErr
}

// shouldRetryError determines if an error should be retried and extracts Retry-After if present.
func shouldRetryError(err error, config *RetryConfig) (bool, time.Duration) {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || !transportErr.Retryable {
		return false, 0
	}

	var retryAfter time.Duration
	if transportErr.StatusCode > 0 {
		if !config.IsRetryable(transportErr.StatusCode) {
			return false, 0
		}
		if transportErr.StatusCode == http.StatusTooManyRequests || transportErr.StatusCode == http.StatusServiceUnavailable {
			retryAfter = extractRetryAfter(transportErr)
		}
	}

	return true, retryAfter
}

// calculateBackoff returns min(InitialBackoff * BackoffFactor^(attempt-1), MaxBackoff),
// raised to Retry-After when that is longer, plus 0-100ms of jitter.
func calculateBackoff(config *RetryConfig, attempt int, retryAfter time.Duration) time.Duration {
	baseDelay := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt-1))
	if baseDelay > float64(config.MaxBackoff) {
		baseDelay = float64(config.MaxBackoff)
	}
	delay := time.Duration(baseDelay)

	if retryAfter > delay {
		delay = retryAfter
	}
	if delay > config.MaxBackoff {
		delay = config.MaxBackoff
	}

	jitter := time.Duration(rand.Int63n(101)) * time.Millisecond
	return delay + jitter
}

// extractRetryAfter parses Retry-After as seconds or an HTTP date.
// Returns 0 if absent or malformed.
func extractRetryAfter(err *TransportError) time.Duration {
	raw, ok := err.Metadata[MetadataRetryAfter].(string)
	if !ok || raw == "" {
		return 0
	}

	if seconds, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
		return time.Duration(seconds) * time.Second
	}

	retryTime, parseErr := http.ParseTime(raw)
	if parseErr != nil {
		return 0
	}
	if delay := time.Until(retryTime); delay > 0 {
		return delay
	}
	return 0
}
