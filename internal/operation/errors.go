package operation

import (
	"fmt"
	"net/http"
)

// ErrorType classifies operation errors for appropriate handling.
type ErrorType string

const (
	// ErrorTypeAuth indicates authentication or authorization failure (401, 403)
	ErrorTypeAuth ErrorType = "auth_error"

	// ErrorTypeNotFound indicates resource not found (404)
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeValidation indicates invalid request data (400, 409, 422)
	ErrorTypeValidation ErrorType = "validation_error"

	// ErrorTypeRateLimit indicates rate limit exceeded (429)
	ErrorTypeRateLimit ErrorType = "rate_limited"

	// ErrorTypeServer indicates server-side error (500, 502, 503, 504)
	ErrorTypeServer ErrorType = "server_error"

	// ErrorTypeTimeout indicates operation timeout
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeConnection indicates network/DNS error
	ErrorTypeConnection ErrorType = "connection_error"

	// ErrorTypeCancelled indicates the run was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// Error represents a host-level failure with classification.
type Error struct {
	// Type classifies the error
	Type ErrorType

	// Message is the human-readable error description
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// SuggestText provides guidance on how to resolve the error.
	SuggestText string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Type != "" {
		msg = fmt.Sprintf("%s (type: %s)", msg, e.Type)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if this error type should be retried.
func (e *Error) IsRetryable() bool {
	return e.Type.Retryable()
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *Error) IsUserVisible() bool {
	return true
}

// UserMessage implements pkg/errors.UserVisibleError.
func (e *Error) UserMessage() string {
	return e.Message
}

// Suggestion implements pkg/errors.UserVisibleError.
func (e *Error) Suggestion() string {
	return e.SuggestText
}

// Retryable reports whether failures of this type are usually transient.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeServer, ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// ClassifyHTTPError classifies an HTTP status code into an error type.
func ClassifyHTTPError(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeValidation
	}
}

// SuggestionFor returns generic guidance for an error type.
func SuggestionFor(t ErrorType) string {
	switch t {
	case ErrorTypeAuth:
		return "Check the stored credential and the user's permissions"
	case ErrorTypeNotFound:
		return "Verify the identifier and that the resource exists"
	case ErrorTypeValidation:
		return "Check the request parameters and payload"
	case ErrorTypeRateLimit:
		return "Wait for the rate limit window or lower http.rate_limit"
	case ErrorTypeServer:
		return "Retry later or contact the server administrator"
	case ErrorTypeTimeout:
		return "Increase http.timeout or check server responsiveness"
	case ErrorTypeConnection:
		return "Check network connectivity and the configured base URL"
	default:
		return ""
	}
}
