// Package fetch wraps net/http for the two requests a vote campaign makes
// over and over: posting a ballot and pulling the standings page.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// Connection pooling limits. Everything targets a single poll host, so the
// per-host budget only needs to cover the worker count with some headroom.
const (
	defaultMaxIdleConns        = 16
	defaultMaxIdleConnsPerHost = 8
	defaultMaxConnsPerHost     = 16
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of one request.
//
// Errors are captured in the Error field rather than returned separately;
// a request that failed before reaching the server has StatusCode 0.
type Response struct {
	// Body is the response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code, zero when no response arrived.
	StatusCode int

	// Latency is the total time the request took.
	Latency time.Duration

	// Error is any transport-level failure. nil means the request completed,
	// whatever the status code says.
	Error error
}

// Client is an HTTP client tuned for repeated submissions against one host.
//
// Timeouts are applied per request through the context, not as a global
// client timeout, so the ballot POST and the standings GET can carry
// different budgets. Bodies are capped at 1MB.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a pooled [Client].
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - per-request timeouts come via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
	}
}

// Fetch performs one request and returns a structured [Response].
//
// An empty method defaults to GET. A non-nil form is sent URL-encoded as the
// request body with the matching Content-Type, unless the caller already set
// one in headers.
func (c *Client) Fetch(ctx context.Context, method, rawURL string, headers map[string]string, form url.Values, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if form != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       data,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close releases idle connections immediately. Safe to call multiple times;
// the client remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
