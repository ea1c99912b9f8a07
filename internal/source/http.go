// Package source fetches samples from the metrics API for the dashboard.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"btc-metrics/internal/domain"
)

// ErrSourceUnavailable wraps every fetch failure: transport, status or decoding.
var ErrSourceUnavailable = errors.New("metrics source unavailable")

const defaultTimeout = 5 * time.Second

// HTTPSource reads a JSON array of samples with a single GET. It does not retry;
// a failed fetch is simply reported and the caller tries again on its next cycle.
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

type Option func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) {
		s.httpClient = c
	}
}

func NewHTTPSource(url string, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]domain.MetricSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	var samples []domain.MetricSample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSourceUnavailable, err)
	}

	return samples, nil
}

var _ domain.SampleSource = (*HTTPSource)(nil)
