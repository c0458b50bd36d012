package transport

import (
	"fmt"
)

// ErrorType classifies transport errors for routing and retry decisions.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates request timeout or deadline exceeded
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates authentication failure (401, 403)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates client errors (4xx, non-retryable)
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeInvalidReq indicates request validation error (invalid method, URL, etc.)
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeCancelled indicates context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TransportError represents a structured error from transport execution.
type TransportError struct {
	// Type classifies the error for routing and retry decisions
	Type ErrorType

	// StatusCode is the HTTP status code if applicable.
	// Zero for non-HTTP errors (connection, timeout, etc.)
	StatusCode int

	// Message is safe to log and display.
	Message string

	// Body is the raw upstream response body, if any was received.
	Body []byte

	// RequestID is the request ID reported by the server.
	RequestID string

	// Retryable indicates whether the error is retryable
	Retryable bool

	// Cause is the underlying error
	Cause error

	// Metadata contains debugging details such as retry_after.
	Metadata map[string]interface{}
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error should be retried.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

// classifyStatus maps an HTTP status code to an error type and retryability.
func classifyStatus(statusCode int) (ErrorType, bool) {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth, false
	case statusCode == 429:
		return ErrorTypeRateLimit, true
	case statusCode == 408:
		return ErrorTypeTimeout, true
	case statusCode >= 500:
		return ErrorTypeServer, true
	default:
		return ErrorTypeClient, false
	}
}
