package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	nodelog "github.com/Jasbris/polarion-node/internal/log"
)

// DefaultTimeout is applied when HTTPTransportConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxMessageBody bounds how much of an error body is copied into Message.
const maxMessageBody = 500

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	config      *HTTPTransportConfig
	client      *http.Client
	rateLimiter RateLimiter
	logger      *slog.Logger
}

// HTTPTransportConfig configures the HTTP transport.
type HTTPTransportConfig struct {
	// Timeout is the per-attempt request timeout (default: 30s)
	Timeout time.Duration

	// Headers are default headers applied to all requests.
	// Request headers override them.
	Headers map[string]string

	// UserAgent is sent when set.
	UserAgent string

	// TLSInsecure disables TLS certificate validation.
	// WARNING: Only use for development/testing
	TLSInsecure bool

	// RetryConfig configures retry behavior for idempotent methods.
	// Nil uses DefaultRetryConfig.
	RetryConfig *RetryConfig

	// Logger receives request/response logs. Nil discards.
	Logger *slog.Logger
}

// Validate checks if the configuration is valid.
func (c *HTTPTransportConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	if c.RetryConfig != nil {
		if err := c.RetryConfig.Validate(); err != nil {
			return fmt.Errorf("invalid retry configuration: %w", err)
		}
	}
	return nil
}

// NewHTTPTransport creates a new HTTP transport with the given configuration.
func NewHTTPTransport(config *HTTPTransportConfig) (*HTTPTransport, error) {
	if config == nil {
		config = &HTTPTransportConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.TLSInsecure, //nolint:gosec // opt-in for self-signed Polarion servers
			},
		},
	}

	logger := config.Logger
	if logger == nil {
		logger = nodelog.Discard()
	}

	return &HTTPTransport{
		config: config,
		client: client,
		logger: nodelog.WithComponent(logger, "transport"),
	}, nil
}

// Name returns "http".
func (t *HTTPTransport) Name() string {
	return "http"
}

// SetRateLimiter configures rate limiting for this transport.
func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// Execute sends an HTTP request and returns the response.
// Only idempotent methods are retried; POST gets exactly one attempt.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("invalid request: %s", err.Error()),
			Cause:   err,
		}
	}

	retryConfig := t.config.RetryConfig
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if !idempotent(req.Method) {
		retryConfig = NoRetry()
	}

	return Execute(ctx, retryConfig, func(ctx context.Context) (*Response, error) {
		return t.executeOnce(ctx, req)
	})
}

// executeOnce executes a single HTTP request without retry logic.
func (t *HTTPTransport) executeOnce(ctx context.Context, req *Request) (*Response, error) {
	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{
				Type:    ErrorTypeCancelled,
				Message: "rate limit wait cancelled",
				Cause:   err,
			}
		}
	}

	httpReq, err := t.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("failed to build HTTP request: %s", err.Error()),
			Cause:   err,
		}
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyClientError(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{
			Type:       ErrorTypeConnection,
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("failed to read response body: %s", err.Error()),
			Retryable:  true,
			Cause:      err,
		}
	}

	t.logger.DebugContext(ctx, "http round trip",
		slog.String("method", req.Method),
		slog.String("url", redactURL(req.URL)),
		slog.Int("status", httpResp.StatusCode),
		slog.Int64(nodelog.DurationKey, time.Since(start).Milliseconds()))
	nodelog.Trace(ctx, t.logger, "http response body", slog.String("body", string(body)))

	metadata := make(map[string]interface{})
	requestID := httpResp.Header.Get("X-Request-ID")
	if requestID != "" {
		metadata[MetadataRequestID] = requestID
	}

	if httpResp.StatusCode >= 400 {
		if retryAfter := httpResp.Header.Get("Retry-After"); retryAfter != "" {
			metadata[MetadataRetryAfter] = retryAfter
		}
		return nil, statusError(httpResp.StatusCode, body, requestID, metadata)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Metadata:   metadata,
	}, nil
}

func validateRequest(req *Request) error {
	if req == nil {
		return errors.New("request is nil")
	}
	switch req.Method {
	case "":
		return errors.New("method is required")
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodHead, http.MethodOptions:
	default:
		return fmt.Errorf("invalid HTTP method: %q", req.Method)
	}

	if req.URL == "" {
		return errors.New("URL is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include host")
	}
	return nil
}

func (t *HTTPTransport) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	if t.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}
	for key, value := range t.config.Headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

// classifyClientError classifies errors returned by http.Client.Do.
func classifyClientError(ctx context.Context, err error) *TransportError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &TransportError{
			Type:    ErrorTypeCancelled,
			Message: "request cancelled",
			Cause:   err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   "request timeout",
			Retryable: true,
			Cause:     err,
		}
	}

	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   fmt.Sprintf("connection error: %s", rootMessage(err)),
		Retryable: true,
		Cause:     err,
	}
}

// statusError builds the error for a >= 400 response. The full body is kept
// on the error; only a short prefix goes into the message.
func statusError(statusCode int, body []byte, requestID string, metadata map[string]interface{}) *TransportError {
	errorType, retryable := classifyStatus(statusCode)

	message := fmt.Sprintf("HTTP %d", statusCode)
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) < maxMessageBody {
		message = fmt.Sprintf("HTTP %d: %s", statusCode, trimmed)
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
		RequestID:  requestID,
		Retryable:  retryable,
		Metadata:   metadata,
	}
}

// rootMessage strips the *url.Error wrapper, which repeats the full URL.
func rootMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// redactURL drops userinfo from a URL before logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	return u.Redacted()
}
