// Package request fetches remote resources (map styles, region outlines)
// with retries on throttling and server errors.
package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"iotinerary/pkg/tracker"
	"iotinerary/pkg/version"
)

const maxBodySize = 32 << 20

var defaultUserAgent = fmt.Sprintf("iotinerary/%s", version.Version)

// ErrStatus wraps non-retryable HTTP error statuses.
var ErrStatus = errors.New("unexpected status")

// Client performs GET requests with per-host backoff and stats.
type Client struct {
	httpClient  *http.Client
	tracker     *tracker.Tracker
	backoff     *HostBackoff
	maxAttempts int
	retryDelay  time.Duration
}

// New creates a client. A nil tracker gets a private one.
func New(t *tracker.Tracker) *Client {
	if t == nil {
		t = tracker.New()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tracker:     t,
		backoff:     NewHostBackoff(500*time.Millisecond, 30*time.Second),
		maxAttempts: 3,
		retryDelay:  500 * time.Millisecond,
	}
}

// Stats returns per-host counters.
func (c *Client) Stats() map[string]tracker.OpStats {
	return c.tracker.Snapshot()
}

// Get fetches u and returns the body.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	host := parsed.Host

	if err := c.backoff.Wait(ctx, host); err != nil {
		return nil, err
	}

	c.tracker.TrackIssued(host)
	body, err := c.executeWithRetry(ctx, u)
	if err != nil {
		c.tracker.TrackFailed(host)
		c.backoff.RecordFailure(host)
		return nil, err
	}
	c.backoff.RecordSuccess(host)
	return body, nil
}

// executeWithRetry retries network errors, 429 and 5xx with exponential delay.
func (c *Client) executeWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			sleep := c.retryDelay << (attempt - 1)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Request failed, retrying", "host", req.URL.Host, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "host", req.URL.Host, "attempt", attempt+1)
			lastErr = fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
