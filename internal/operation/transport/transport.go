// Package transport is the host-side HTTP round trip used by nodes.
//
// Nodes build a fully resolved Request (URL, headers, body) and hand it to a
// Transport. The transport owns timeouts, TLS settings, retries of idempotent
// requests and rate limiting, and reports every failure as a *TransportError
// that carries the upstream body when one was received.
package transport

import (
	"context"
	"net/http"
)

// Transport executes requests on behalf of a node.
type Transport interface {
	// Execute sends a request and returns a response.
	// The context controls cancellation and deadlines.
	// Returns *TransportError on failure, including non-2xx responses.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Name returns the transport identifier.
	Name() string

	// SetRateLimiter configures rate limiting for this transport.
	SetRateLimiter(limiter RateLimiter)
}

// Request is a fully resolved outbound request.
type Request struct {
	// Method is the HTTP method. Required.
	Method string

	// URL is the full request URL including the query string. Required.
	URL string

	// Headers are request headers.
	Headers map[string]string

	// Body is the request body. Nil means no body.
	Body []byte
}

// Response is a successful (2xx/3xx) response.
type Response struct {
	StatusCode int

	Headers http.Header

	Body []byte

	// Metadata carries request ID and retry count.
	Metadata map[string]interface{}
}

// Standard metadata keys.
const (
	// MetadataRequestID is the upstream request ID, when the server sends one.
	MetadataRequestID = "request_id"

	// MetadataRetryCount is the number of retries performed for this request.
	MetadataRetryCount = "retry_count"

	// MetadataRetryAfter is the raw Retry-After header of a failed attempt.
	MetadataRetryAfter = "retry_after"
)

// RateLimiter provides rate limiting for transport requests.
// *rate.Limiter from golang.org/x/time/rate satisfies it.
type RateLimiter interface {
	// Wait blocks until a request is allowed under the rate limit.
	Wait(ctx context.Context) error
}

// idempotent reports whether a method may be safely retried.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
