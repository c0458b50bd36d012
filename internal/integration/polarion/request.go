package polarion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nodelog "github.com/Jasbris/polarion-node/internal/log"
	"github.com/Jasbris/polarion-node/internal/operation"
	"github.com/Jasbris/polarion-node/internal/operation/transport"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

const tracerName = "github.com/Jasbris/polarion-node/internal/integration/polarion"

// CredentialSource loads the stored credential.
type CredentialSource interface {
	Load(ctx context.Context) (*Credential, error)
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (*Credential, error)

// Load implements CredentialSource.
func (f CredentialFunc) Load(ctx context.Context) (*Credential, error) {
	return f(ctx)
}

// StaticCredential returns a source that always yields cred.
func StaticCredential(cred *Credential) CredentialSource {
	return CredentialFunc(func(context.Context) (*Credential, error) {
		return cred, nil
	})
}

// Client performs authenticated requests against the Polarion REST API.
type Client struct {
	credentials CredentialSource
	transport   transport.Transport
	logger      *slog.Logger
	tracer      trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = nodelog.WithComponent(logger, "polarion")
		}
	}
}

// WithClientTracer sets the tracer used for request spans.
func WithClientTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient creates a request helper that reads the credential from creds
// on every request and sends through tr.
func NewClient(creds CredentialSource, tr transport.Transport, opts ...ClientOption) *Client {
	c := &Client{
		credentials: creds,
		transport:   tr,
		logger:      nodelog.Discard(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends a resolved request.
func (c *Client) Do(ctx context.Context, spec *RequestSpec) (interface{}, error) {
	return c.Request(ctx, spec.Method, spec.Path, spec.Body, spec.Query)
}

// Request performs one authenticated JSON round trip and returns the decoded
// response. A 2xx response with an empty body decodes to {"success": true}.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, query url.Values) (interface{}, error) {
	cred, err := c.loadCredential(ctx)
	if err != nil {
		return nil, err
	}
	authorization, err := authorizationHeader(cred)
	if err != nil {
		return nil, err
	}

	target := strings.TrimRight(cred.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &PayloadParseError{Reason: "payload cannot be encoded as JSON", Cause: err}
		}
	}

	ctx, span := c.tracer.Start(ctx, "polarion.request", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	))
	defer span.End()

	c.logger.DebugContext(ctx, "polarion request", slog.String("method", method), slog.String("path", path))
	if payload != nil {
		nodelog.Trace(ctx, c.logger, "polarion request body", slog.String("body", string(payload)))
	}

	start := time.Now()
	resp, err := c.transport.Execute(ctx, &transport.Request{
		Method: method,
		URL:    target,
		Headers: map[string]string{
			"Authorization": authorization,
			"Content-Type":  "application/json",
			"Accept":        "application/json",
		},
		Body: payload,
	})
	if err != nil {
		elapsed := time.Since(start)
		failure := newRequestFailure(method, path, err)
		if failure.Type() == operation.ErrorTypeTimeout {
			failure.Cause = &pkgerrors.TimeoutError{Operation: method + " " + path, Duration: elapsed, Cause: err}
		}
		recordRequest(method, failure.StatusCode, elapsed)
		span.SetAttributes(attribute.Int("http.response.status_code", failure.StatusCode))
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Message)
		return nil, failure
	}

	recordRequest(method, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return map[string]interface{}{"success": true}, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		failure := &RequestFailure{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    "response is not valid JSON",
			Body:       resp.Body,
			Cause:      err,
		}
		span.SetStatus(codes.Error, failure.Message)
		return nil, failure
	}
	return decoded, nil
}

func (c *Client) loadCredential(ctx context.Context) (*Credential, error) {
	if c.credentials == nil {
		return nil, &ConfigurationError{Reason: "no credential source configured"}
	}
	cred, err := c.credentials.Load(ctx)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("credential %q could not be loaded", CredentialType), Cause: err}
	}
	if cred == nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("credential %q is not configured", CredentialType)}
	}
	if strings.TrimSpace(cred.BaseURL) == "" {
		return nil, &ConfigurationError{Reason: "credential has no baseUrl"}
	}
	if err := cred.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("credential %q is invalid", CredentialType), Cause: err}
	}
	return cred, nil
}

// authorizationHeader builds the Authorization header for cred.
func authorizationHeader(cred *Credential) (string, error) {
	switch cred.Method() {
	case AuthBasic:
		if cred.Username == "" || cred.Password == "" {
			return "", &ConfigurationError{Reason: "basic authentication selected but username or password is empty"}
		}
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred.Username+":"+cred.Password)), nil
	case AuthToken:
		if cred.Token == "" {
			return "", &ConfigurationError{Reason: "token authentication selected but no token is stored"}
		}
		return "Bearer " + cred.Token, nil
	default:
		return "", &ConfigurationError{Reason: "unsupported authentication method " + strconv.Quote(string(cred.Authentication))}
	}
}
