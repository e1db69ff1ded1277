package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HTTPClient is the production Client speaking GraphQL over HTTP POST.
type HTTPClient struct {
	scope      string
	url        string
	headers    map[string]string
	httpClient *http.Client
	tracer     trace.Tracer
}

// HTTPClientConfig holds configuration for the HTTP client.
type HTTPClientConfig struct {
	Scope   string
	URL     string
	Timeout time.Duration
	Headers map[string]string
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// NewHTTPClient creates an HTTP-based client for one scope.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/corewar/corewar-api/pkg/gqlclient")
	}

	return &HTTPClient{
		scope:   cfg.Scope,
		url:     cfg.URL,
		headers: cfg.Headers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: tracer,
	}
}

// Query posts the operation and decodes the response envelope.
// GraphQL errors in the envelope are returned as a *QueryError alongside the result.
func (c *HTTPClient) Query(ctx context.Context, req *Request) (result *Result, err error) {
	ctx, span := c.tracer.Start(ctx, "gqlclient.Query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gqlclient.scope", c.scope),
			attribute.String("graphql.operation.name", req.OperationName),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "corewar-api/1.0")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewQueryError(c.scope, CodeTransport, "request failed").
			WithCause(err).
			WithRetryable(true)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseError(resp)
	}

	var decoded Result
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, NewQueryError(c.scope, CodeInvalidResult, "failed to decode response").WithCause(err)
	}

	if len(decoded.Errors) > 0 {
		return &decoded, NewQueryError(c.scope, CodeGraphQL, joinMessages(decoded.Errors))
	}
	return &decoded, nil
}

// parseError builds a QueryError from a non-2xx response.
func (c *HTTPClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(body))
	var envelope Result
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		msg = joinMessages(envelope.Errors)
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return NewQueryError(c.scope, CodeHTTPStatus, msg).
		WithStatusCode(resp.StatusCode).
		WithRetryable(resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
}

func joinMessages(errs []ResponseError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Ensure HTTPClient implements Client interface
var _ Client = (*HTTPClient)(nil)
