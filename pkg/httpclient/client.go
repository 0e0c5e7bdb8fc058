// Package httpclient sends vendor API requests and retries throttled or
// flaky responses with backoff derived from the vendor's rate limit headers.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// backoff says how a failed status may be retried.
type backoff int

const (
	// backoffNone fails the call at once.
	backoffNone backoff = iota
	// backoffLinear waits base, then 2*base, and gives up after two tries.
	backoffLinear
	// backoffExponential honors vendor hints, else doubles base per attempt.
	backoffExponential
)

// classify maps a response status to its retry behavior.
func classify(status int) backoff {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return backoffExponential
	case http.StatusRequestTimeout, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusGatewayTimeout:
		return backoffLinear
	}
	return backoffNone
}

// RateLimitInfo is what a vendor told us about its limits.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetAt           time.Time
	RequestsRemaining int
	TokensRemaining   int
}

// HeaderParser extracts RateLimitInfo from a vendor response.
type HeaderParser func(http.Header) RateLimitInfo

// Client wraps an http.Client. Retries are off unless WithMaxRetries is set,
// and they only happen before a response body reaches the caller.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	parse      HeaderParser
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMaxRetries sets how many extra attempts a retryable status gets.
// Negative values are ignored.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

func WithHeaderParser(p HeaderParser) Option {
	return func(c *Client) { c.parse = p }
}

// New builds a Client. The underlying http.Client has no overall timeout
// because streamed generations are long-lived; callers bound each call
// through the request context.
func New(opts ...Option) *Client {
	c := &Client{http: &http.Client{}, baseDelay: time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req. On a non-2xx status the response comes back together with
// a *StatusError, or a *RetryableError once retries ran out. The caller
// owns the body in both cases.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := rewind(req, attempt); err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 == 2 {
			return resp, nil
		}

		statusErr := newStatusError(resp)
		wait := c.delay(classify(resp.StatusCode), attempt, resp.Header)
		switch {
		case wait <= 0 || c.maxRetries == 0:
			return resp, statusErr
		case attempt >= c.maxRetries:
			return resp, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("gave up after %d retries", c.maxRetries),
				RetryAfter: wait,
				Err:        statusErr,
			}
		}

		discard(resp)
		slog.Warn("Vendor request throttled, retrying",
			"status", resp.StatusCode, "delay", wait, "attempt", attempt+1, "max_retries", c.maxRetries)
		if err := pause(req.Context(), wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) delay(b backoff, attempt int, h http.Header) time.Duration {
	switch b {
	case backoffExponential:
		if c.parse != nil {
			info := c.parse(h)
			if info.RetryAfter > 0 {
				return info.RetryAfter
			}
			if d := time.Until(info.ResetAt); !info.ResetAt.IsZero() && d > 0 {
				return d
			}
		}
		d := c.baseDelay << attempt
		return d + d/10
	case backoffLinear:
		if attempt < 2 {
			return time.Duration(attempt+1) * c.baseDelay
		}
	}
	return 0
}

func rewind(req *http.Request, attempt int) error {
	if attempt == 0 || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
