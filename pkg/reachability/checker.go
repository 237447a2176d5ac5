// Package reachability answers whether a URL currently responds with a
// success or redirect status.
package reachability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 5
	DefaultConcurrency  = 8
	defaultUserAgent    = "sweeps-link-checker/1.0"
)

var ErrTooManyRedirects = errors.New("too many redirects")

type Result struct {
	Reachable  bool
	StatusCode int
	Err        error
}

type Checker interface {
	Check(ctx context.Context, url string, timeout time.Duration) Result
}

type HTTPChecker struct {
	HTTPClient   *http.Client
	Limiter      *rate.Limiter
	MaxRedirects int
	UserAgent    string
}

type Option func(*HTTPChecker)

func WithLimiter(l *rate.Limiter) Option {
	return func(c *HTTPChecker) { c.Limiter = l }
}

func WithMaxRedirects(n int) Option {
	return func(c *HTTPChecker) { c.MaxRedirects = n }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPChecker) { c.HTTPClient = client }
}

func NewHTTPChecker(opts ...Option) *HTTPChecker {
	c := &HTTPChecker{
		MaxRedirects: DefaultMaxRedirects,
		UserAgent:    defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	maxRedirects := c.MaxRedirects
	c.HTTPClient.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return ErrTooManyRedirects
		}
		return nil
	}
	return c
}

// Check issues a HEAD request and retries once with GET when the server
// rejects HEAD. The timeout covers both attempts.
func (c *HTTPChecker) Check(ctx context.Context, url string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return Result{Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	status, err := c.do(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return Result{StatusCode: status, Err: err}
	}

	return Result{
		Reachable:  IsReachableStatus(status),
		StatusCode: status,
	}
}

func (c *HTTPChecker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

func IsReachableStatus(status int) bool {
	return status >= 200 && status <= 399
}

// CheckAll checks every URL with at most concurrency requests in flight.
// Results are indexed like urls. It only fails when ctx is cancelled.
func CheckAll(ctx context.Context, checker Checker, urls []string, timeout time.Duration, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checker.Check(gctx, u, timeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
