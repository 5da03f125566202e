// Package backends holds the HTTP clients for the downstream specialist
// services: the text conversation backend, the vision/classification
// backend and the report generator. All calls go through a shared
// bounded-retry JSON POST helper.
package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DownstreamError reports a backend that stayed unreachable after all
// retries. It carries the backend URL and the last attempt's error so the
// caller can surface both.
type DownstreamError struct {
	URL string
	Err error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream %s unavailable: %v", e.URL, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// RetryingClient POSTs JSON payloads with a fixed per-attempt timeout and
// bounded retries. Any non-2xx status or transport error is retried
// identically up to the cap with linearly increasing backoff; the
// distinction between retryable and non-retryable statuses is deliberately
// not made because all downstream calls here are stateless and idempotent.
type RetryingClient struct {
	httpClient *http.Client
	retries    int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewRetryingClient builds a client performing up to retries additional
// attempts after the first, sleeping baseDelay*(attempt+1) between them.
func NewRetryingClient(timeout time.Duration, retries int, baseDelay time.Duration, logger *zap.Logger) *RetryingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingClient{
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// PostJSON posts the payload and returns the raw response body. After
// exhausting retries it fails with a *DownstreamError wrapping the last
// attempt's error.
func (c *RetryingClient) PostJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(attempt)
			c.logger.Debug("retrying downstream call",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		respBody, err := c.post(ctx, url, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &DownstreamError{URL: url, Err: lastErr}
}

func (c *RetryingClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
