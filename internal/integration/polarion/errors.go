package polarion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Jasbris/polarion-node/internal/operation"
	"github.com/Jasbris/polarion-node/internal/operation/transport"
)

// ConfigurationError reports a missing or unusable credential. It is fatal:
// the runner aborts the whole execution instead of recording it per item.
type ConfigurationError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("polarion configuration error: %s: %v", e.Reason, e.Cause)
	}
	return "polarion configuration error: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error { return e.Cause }

// IsFatal implements pkg/errors.FatalError.
func (e *ConfigurationError) IsFatal() bool { return true }

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *ConfigurationError) IsUserVisible() bool { return true }

// UserMessage implements pkg/errors.UserVisibleError.
func (e *ConfigurationError) UserMessage() string { return e.Reason }

// Suggestion implements pkg/errors.UserVisibleError.
func (e *ConfigurationError) Suggestion() string {
	return "Run 'polarion-node credentials set' or export POLARION_BASE_URL and POLARION_TOKEN"
}

// PayloadParseError reports create/update data that is not valid JSON.
type PayloadParseError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *PayloadParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid data: %s: %v", e.Reason, e.Cause)
	}
	return "invalid data: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *PayloadParseError) Unwrap() error { return e.Cause }

// RoutingError reports an item that does not resolve to an endpoint.
type RoutingError struct {
	Resource  Resource
	Operation Operation
	Reason    string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("cannot route operation %q on resource %q: %s", e.Operation, e.Resource, e.Reason)
}

// ErrorDetail is one entry of a JSON:API error document.
type ErrorDetail struct {
	Status string `json:"status,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
	Source *struct {
		Pointer   string `json:"pointer,omitempty"`
		Parameter string `json:"parameter,omitempty"`
	} `json:"source,omitempty"`
}

func (d ErrorDetail) String() string {
	var b strings.Builder
	b.WriteString(d.Title)
	if d.Detail != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(d.Detail)
	}
	if d.Source != nil && d.Source.Pointer != "" {
		fmt.Fprintf(&b, " (at %s)", d.Source.Pointer)
	}
	return b.String()
}

// RequestFailure reports a failed round trip: a transport error or a
// non-2xx response. Body holds the raw upstream payload.
type RequestFailure struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       []byte
	Details    []ErrorDetail
	RequestID  string
	Cause      error
}

// Error implements the error interface.
func (e *RequestFailure) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("polarion request %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("polarion request %s %s failed: %s", e.Method, e.Path, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RequestFailure) Unwrap() error { return e.Cause }

// Type classifies the failure.
func (e *RequestFailure) Type() operation.ErrorType {
	if e.StatusCode > 0 {
		return operation.ClassifyHTTPError(e.StatusCode)
	}
	var te *transport.TransportError
	if errors.As(e.Cause, &te) {
		switch te.Type {
		case transport.ErrorTypeTimeout:
			return operation.ErrorTypeTimeout
		case transport.ErrorTypeCancelled:
			return operation.ErrorTypeCancelled
		}
	}
	return operation.ErrorTypeConnection
}

// ErrorType implements pkg/errors.ErrorClassifier.
func (e *RequestFailure) ErrorType() string { return string(e.Type()) }

// IsRetryable implements pkg/errors.ErrorClassifier.
func (e *RequestFailure) IsRetryable() bool { return e.Type().Retryable() }

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *RequestFailure) IsUserVisible() bool { return true }

// UserMessage implements pkg/errors.UserVisibleError.
func (e *RequestFailure) UserMessage() string { return e.Message }

// Suggestion implements pkg/errors.UserVisibleError.
func (e *RequestFailure) Suggestion() string { return operation.SuggestionFor(e.Type()) }

// Upstream returns the upstream body decoded as JSON, or as a string when it
// is not JSON. Nil when no body was received.
func (e *RequestFailure) Upstream() interface{} {
	if len(e.Body) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return string(e.Body)
}

// newRequestFailure converts a transport failure into a RequestFailure,
// parsing a JSON:API error document when the body holds one.
func newRequestFailure(method, path string, err error) *RequestFailure {
	failure := &RequestFailure{
		Method:  method,
		Path:    path,
		Message: err.Error(),
		Cause:   err,
	}

	var te *transport.TransportError
	if !errors.As(err, &te) {
		return failure
	}

	failure.StatusCode = te.StatusCode
	failure.Body = te.Body
	failure.RequestID = te.RequestID
	failure.Message = te.Message

	if details := parseErrorDocument(te.Body); len(details) > 0 {
		failure.Details = details
		messages := make([]string, 0, len(details))
		for _, d := range details {
			if s := d.String(); s != "" {
				messages = append(messages, s)
			}
		}
		if len(messages) > 0 {
			failure.Message = strings.Join(messages, "; ")
		}
	} else if te.StatusCode > 0 && len(te.Body) == 0 {
		failure.Message = defaultMessage(te.StatusCode)
	}

	return failure
}

// parseErrorDocument extracts {"errors": [...]} entries. Returns nil when the
// body is not a JSON:API error document.
func parseErrorDocument(body []byte) []ErrorDetail {
	if len(body) == 0 {
		return nil
	}
	var doc struct {
		Errors []ErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	return doc.Errors
}

// defaultMessage returns a message for an error status with no body.
func defaultMessage(statusCode int) string {
	switch statusCode {
	case 400:
		return "Bad request - check the item parameters"
	case 401:
		return "Unauthorized - check the stored credential"
	case 403:
		return "Forbidden - the user lacks permission for this resource"
	case 404:
		return "Not found - the requested resource does not exist"
	case 405:
		return "Method not allowed"
	case 409:
		return "Conflict - the request conflicts with the current state"
	case 429:
		return "Rate limit exceeded - too many requests"
	case 500:
		return "Internal server error"
	case 502:
		return "Bad gateway"
	case 503:
		return "Service unavailable"
	default:
		return fmt.Sprintf("Request failed with status %d", statusCode)
	}
}
