// Package httpclient implements one HTTP client bound to one
// n8n-compatible server, with authenticated JSON requests, retry +
// exponential backoff, a sliding-window rate limiter, and safe (redacted)
// logging. The underlying transport is built with
// github.com/worldline-go/klient for proxy/TLS options.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/worldline-go/klient"

	"github.com/rakunlabs/transferctl/internal/apierr"
	"github.com/rakunlabs/transferctl/internal/types"
)

// Options configure one Client bound to one server.
type Options struct {
	BaseURL              string
	APIKey               string
	Logger               *slog.Logger
	MaxRetries           int
	Timeout              time.Duration
	MaxRequestsPerSecond int

	// RoundTripper, if set, replaces the klient-built transport. No caller
	// in this module sets it.
	RoundTripper http.RoundTripper
}

// Client is one server's authenticated JSON HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	logger     *slog.Logger
	maxRetries int
	timeout    time.Duration
	http       *http.Client
	limiter    *rateLimiter

	stats stats
}

type stats struct {
	total       atomic.Int64
	successful  atomic.Int64
	failed      atomic.Int64
	retried     atomic.Int64
	rateLimited atomic.Int64
}

// New constructs a Client. It rejects construction if BaseURL or APIKey
// is missing.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, apierr.New(apierr.Validation, "httpclient: baseUrl is required", nil)
	}
	if opts.APIKey == "" {
		return nil, apierr.New(apierr.Validation, "httpclient: apiKey is required", nil)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRequestsPerSecond <= 0 {
		opts.MaxRequestsPerSecond = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.RoundTripper
	if httpClient == nil {
		kc, err := klient.New(
			klient.WithDisableBaseURLCheck(true),
			klient.WithDisableEnvValues(true),
			klient.WithDisableRetry(true), // retry is owned by this package, not klient
		)
		if err != nil {
			return nil, fmt.Errorf("httpclient: build transport: %w", err)
		}
		httpClient = kc.HTTP.Transport
	}

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		logger:     opts.Logger,
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		http:       &http.Client{Transport: httpClient},
		limiter:    newRateLimiter(opts.MaxRequestsPerSecond),
	}, nil
}

// GetStats returns request counters since construction or ResetStats.
func (c *Client) GetStats() types.HTTPClientStats {
	return types.HTTPClientStats{
		TotalRequests: c.stats.total.Load(),
		Successful:    c.stats.successful.Load(),
		Failed:        c.stats.failed.Load(),
		Retried:       c.stats.retried.Load(),
		RateLimited:   c.stats.rateLimited.Load(),
	}
}

// ResetStats zeroes every counter.
func (c *Client) ResetStats() {
	c.stats.total.Store(0)
	c.stats.successful.Store(0)
	c.stats.failed.Store(0)
	c.stats.retried.Store(0)
	c.stats.rateLimited.Store(0)
}

// GetWorkflows fetches every workflow visible to the configured API key.
// The server wraps results as {"data": [...]} on some endpoints; the
// client unwraps data when present (a null data yields an empty list),
// else returns the top-level array.
func (c *Client) GetWorkflows(ctx context.Context) ([]types.Workflow, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/workflows", nil, &raw); err != nil {
		return nil, err
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if data, ok := wrapped["data"]; ok {
			var list []types.Workflow
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("httpclient: decode workflows: %w", err)
			}
			return list, nil
		}
	}

	var list []types.Workflow
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("httpclient: decode workflows: %w", err)
	}
	return list, nil
}

// GetWorkflow fetches a single workflow by id. A 404 is reported as
// apierr.NotFound.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	var w types.Workflow
	if err := c.do(ctx, http.MethodGet, "/api/v1/workflows/"+id, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWorkflow creates w on the server and returns the created
// workflow including its server-assigned id.
func (c *Client) CreateWorkflow(ctx context.Context, w types.Workflow) (*types.Workflow, error) {
	if w.Name == "" {
		return nil, apierr.New(apierr.Validation, "httpclient: workflow name is required", nil)
	}
	if w.Nodes == nil {
		return nil, apierr.New(apierr.Validation, "httpclient: workflow nodes must be an array", nil)
	}

	// id is stripped/ignored by TARGET.
	payload := w
	payload.ID = ""

	var created types.Workflow
	if err := c.do(ctx, http.MethodPost, "/api/v1/workflows", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ConnectionTestResult is the result of TestConnection.
type ConnectionTestResult struct {
	Success    bool
	Message    string
	Error      string
	Suggestion string
}

// TestConnection probes the server by calling the list endpoint and
// interprets low-level failures into a human suggestion.
func (c *Client) TestConnection(ctx context.Context) ConnectionTestResult {
	_, err := c.GetWorkflows(ctx)
	if err == nil {
		return ConnectionTestResult{Success: true, Message: "connected"}
	}

	te := apierr.New(apierr.Unknown, err.Error(), err)
	if cast, ok := err.(*apierr.TransferError); ok {
		te = cast
	}
	return ConnectionTestResult{
		Success:    false,
		Error:      te.Message,
		Suggestion: te.Suggestion,
	}
}

// do performs one logical request, applying the rate limiter and the
// retry/backoff policy.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: encode request body: %w", err)
		}
		bodyBytes = b
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Warn("httpclient: retrying request", "method", method, "path", path, "attempt", attempt, "wait", wait)
			c.stats.retried.Add(1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if c.limiter.wait(time.Now) {
			c.stats.rateLimited.Add(1)
		}

		status, respBody, err := c.attempt(ctx, method, path, bodyBytes)
		c.stats.total.Add(1)

		if err == nil && status >= 200 && status < 300 {
			c.stats.successful.Add(1)
			if out != nil && len(respBody) > 0 {
				if uerr := json.Unmarshal(respBody, out); uerr != nil {
					return fmt.Errorf("httpclient: decode response: %w", uerr)
				}
			}
			return nil
		}

		if status == http.StatusTooManyRequests {
			c.stats.rateLimited.Add(1)
		}

		classified := apierr.Classify(status, string(respBody), err)
		lastErr = classified

		if !apierr.IsRetryable(status, err) {
			c.stats.failed.Add(1)
			c.logger.Error("httpclient: request failed", "method", method, "path", path, "error", classified.Error())
			return classified
		}
	}

	c.stats.failed.Add(1)
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-N8N-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("httpclient: request", "method", method, "path", path, "apiKey", maskKey(c.apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}

func maskKey(key string) string {
	if len(key) <= 3 {
		return key
	}
	stars := make([]byte, len(key)-3)
	for i := range stars {
		stars[i] = '*'
	}
	return string(stars) + key[len(key)-3:]
}
