package dropship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/supplysync/backend/internal/domain/supplier"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from a supplier API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client defaults
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// LinearBackoff waits 0.5s times the attempt number
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}

// ClientConfig configures a supplier HTTP client
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	// Backoff returns the pause after a failed attempt (1-based)
	Backoff    func(attempt int) time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Response is a decoded supplier response
type Response struct {
	StatusCode int
	Body       []byte
	payload    any
}

// Payload returns the decoded JSON body; nil for an empty body
func (r *Response) Payload() any {
	return r.payload
}

// Object returns the decoded body as a JSON object, or an empty map
func (r *Response) Object() map[string]any {
	if m, ok := r.payload.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Client issues supplier API calls. Every attempt is charged to the budget
// and paced; rate-limit responses are returned at once, other failures are
// retried up to MaxRetries.
type Client struct {
	httpClient *http.Client
	budget     *Budget
	timeout    time.Duration
	maxRetries int
	backoff    func(int) time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
	requests   atomic.Int64
}

// NewClient creates a client charging every attempt to budget
func NewClient(cfg ClientConfig, budget *Budget) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff == nil {
		cfg.Backoff = LinearBackoff
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		budget:     budget,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     cfg.Logger,
		tracer:     otel.Tracer("github.com/supplysync/backend/dropship"),
	}
}

// RequestCount returns the number of HTTP attempts made
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// Get issues a GET with query params
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*Response, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}
	return c.do(ctx, http.MethodGet, rawURL, headers, nil)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, rawURL string, headers map[string]string, body any) (*Response, error) {
	if body == nil {
		body = map[string]any{}
	}
	blob, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("dropship: failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, headers, blob)
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.budget.Charge(ctx, 1); err != nil {
			return nil, err
		}
		if err := c.budget.MaybeWait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.attempt(ctx, method, rawURL, headers, body)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, supplier.ErrRateLimited) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		if attempt >= c.maxRetries {
			break
		}
		c.logger.Debug("supplier request failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// attempt performs one request and classifies the response
func (c *Client) attempt(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "dropship.http "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("dropship: failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", req.URL.Path),
	)

	c.requests.Add(1)
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", supplier.ErrTransientHTTP, method, req.URL.Path, err)
	}
	defer httpResp.Body.Close()

	blob, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", supplier.ErrTransientHTTP, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	payload, decodeErr := decodeJSON(blob)

	if isRateLimited(httpResp.StatusCode, payload) {
		span.SetStatus(codes.Error, "rate limited")
		return nil, fmt.Errorf("%w: provider rate limit reached (HTTP %d)", supplier.ErrRateLimited, httpResp.StatusCode)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		span.SetStatus(codes.Error, httpResp.Status)
		return nil, newHTTPError(httpResp.StatusCode, blob)
	}
	if decodeErr != nil {
		span.SetStatus(codes.Error, "malformed body")
		return nil, newHTTPError(httpResp.StatusCode, blob)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       blob,
		payload:    payload,
	}, nil
}

// decodeJSON decodes a body keeping numbers as json.Number. An empty body
// decodes to nil without error.
func decodeJSON(blob []byte) (any, error) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func isRateLimited(status int, payload any) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	code := supplier.Credentials(obj).String("code", "")
	_, limited := vendorRateLimitCodes[code]
	return limited
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
