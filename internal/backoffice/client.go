// Package backoffice talks to the POS backend that owns orders, cash operations, bank
// transactions and business configuration.
package backoffice

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
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/odyssey-erp/pos-backoffice/internal/platform/resilience"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

const (
	// IdempotencyHeader carries the payment registration key to the backend.
	IdempotencyHeader = "Idempotency-Key"

	defaultPageSize = 100
	maxErrorBody    = 4 << 10
)

var tracer = otel.Tracer("backoffice")

// CallObserver is told about every finished backend call.
type CallObserver interface {
	ObserveBackendCall(operation string, err error, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Retry      resilience.Config
	HTTPClient *http.Client
	Breaker    *gobreaker.CircuitBreaker
	PageSize   int
	Observer   CallObserver
}

// Client is the REST client of the POS backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	retry      resilience.Config
	pageSize   int
	observer   CallObserver
}

// NewClient constructs a backend client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backoffice: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backoffice: base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("pos-backend")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:    base,
		token:      opts.Token,
		httpClient: httpClient,
		breaker:    breaker,
		bulkhead:   resilience.NewBulkhead(opts.Retry.MaxConcurrency),
		retry:      opts.Retry,
		pageSize:   pageSize,
		observer:   opts.Observer,
	}, nil
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// do executes req through the bulkhead, circuit breaker and retry loop, decoding a 2xx
// response into dest when it is non-nil.
func (c *Client) do(ctx context.Context, req request, dest any) (err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "backoffice."+strings.ReplaceAll(req.op, " ", "_"))
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendCall(req.op, err, time.Since(start))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("backoffice.path", req.path),
	)

	var payload []byte
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("backoffice: %s: encode: %w", req.op, err)
		}
		payload = raw
	}
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.retry, func() error {
			return c.attempt(ctx, req, payload, dest)
		})
	})
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrConflict):
		return fmt.Errorf("backoffice: %s: %w", req.op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	out := &ExternalServiceError{Operation: req.op, Err: err}
	var status *httpStatusError
	if errors.As(err, &status) {
		out.Status = status.status
	}
	return out
}

func (c *Client) attempt(ctx context.Context, req request, payload []byte, dest any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return resilience.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resilience.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
