// Package upstream provides clients for the public chain and price APIs the collector samples.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is returned for any non-200 upstream response.
var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// HeightFetcher returns the current chain tip height.
type HeightFetcher interface {
	FetchHeight(ctx context.Context) (int64, error)
}

// PriceFetcher returns the current BTC price in USD.
type PriceFetcher interface {
	FetchPrice(ctx context.Context) (float64, error)
}

type clientOptions struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*clientOptions)

// WithHTTPClient overrides the retrying client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithRateLimit spaces out requests to at most perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *clientOptions) {
		if perSecond <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func buildOptions(timeout time.Duration, opts []Option) clientOptions {
	o := clientOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.httpClient == nil {
		o.httpClient = newRetryClient(timeout)
	}
	return o
}

// newRetryClient creates an HTTP client with retry logic.
func newRetryClient(timeout time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	std := c.StandardClient()
	std.Timeout = timeout
	return std
}

// get issues a GET and returns the body of a 200 response.
func get(ctx context.Context, c clientOptions, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	return body, nil
}
