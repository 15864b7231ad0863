// Package lemonsqueezy talks to the LemonSqueezy license and order APIs.
package lemonsqueezy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"auto-focus.app/updates/internal/entitlement"
)

const (
	DefaultPageSize = 100
	maxBodyBytes    = 10 << 20
)

// Observer receives the duration and outcome of every upstream call.
type Observer interface {
	ObserveUpstream(call string, took time.Duration, err error)
}

type Client struct {
	baseURL    *url.URL
	variantID  string
	apiKey     string
	timeout    time.Duration
	pageSize   int
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	observer   Observer
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithPageSize(size int) Option {
	return func(c *Client) {
		c.pageSize = size
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithMaintenanceVariant restricts strict order checks to orders of
// variantID. Without it every paid order is checked.
func WithMaintenanceVariant(variantID string) Option {
	return func(c *Client) {
		c.variantID = variantID
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns a client safe for concurrent use. timeout bounds every single
// outbound call, each page of a listing included.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		apiKey:     apiKey,
		timeout:    timeout,
		pageSize:   DefaultPageSize,
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "lemonsqueezy",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected license key or a caller that went away says nothing
		// about upstream health.
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, entitlement.ErrUpstreamUnavailable)
		},
	})

	return c, nil
}

type response struct {
	status int
	body   []byte
}

// do executes one request through the circuit breaker. Transport failures,
// 5xx and 429 come back as ErrUpstreamUnavailable; every other status is
// returned to the caller to interpret.
func (c *Client) do(ctx context.Context, call string, newRequest func(ctx context.Context) (*http.Request, error)) (*response, error) {
	// A caller that already gave up must not reach the breaker at all.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", call, err)
	}

	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := newRequest(callCtx)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, c.transportError(ctx, call, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, c.transportError(ctx, call, fmt.Errorf("reading response: %w", err))
		}

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s returned status %d", entitlement.ErrUpstreamUnavailable, call, resp.StatusCode)
		}

		return &response{status: resp.StatusCode, body: body}, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s: %v", entitlement.ErrUpstreamUnavailable, call, err)
	}
	if c.observer != nil {
		c.observer.ObserveUpstream(call, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	return result.(*response), nil
}

// transportError classifies a failed round trip. Cancellation by the caller
// is reported as the caller's context error so it never counts against the
// upstream; a per-call timeout or network failure does.
func (c *Client) transportError(ctx context.Context, call string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", call, ctxErr)
	}
	return fmt.Errorf("%w: %s: %v", entitlement.ErrUpstreamUnavailable, call, err)
}

// resolve turns a path or an upstream-provided link into an absolute URL on
// the configured host. Links to any other host are refused so the API key
// is never sent elsewhere.
func (c *Client) resolve(ref string) (*url.URL, error) {
	u, err := c.baseURL.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid link %q: %v", entitlement.ErrMalformedUpstreamData, ref, err)
	}
	if u.Host != c.baseURL.Host || u.Scheme != c.baseURL.Scheme {
		return nil, fmt.Errorf("%w: link %q leaves %s", entitlement.ErrMalformedUpstreamData, ref, c.baseURL.Host)
	}
	return u, nil
}

func parseTimestamp(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %v", entitlement.ErrMalformedUpstreamData, field, value, err)
	}
	return t.UTC(), nil
}
