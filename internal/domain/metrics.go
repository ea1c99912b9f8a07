package domain

import "context"

// MetricSample is one chain observation. Timestamp is the identity key.
type MetricSample struct {
	BlockHeight int64   `json:"block_height"`
	BTCPrice    float64 `json:"btc_price"`
	Timestamp   string  `json:"timestamp"`
}

type MetricStore interface {
	Init() error
	StoreSample(ctx context.Context, sample MetricSample) error
	LatestSamples(ctx context.Context, limit int) ([]MetricSample, error)
	GetSamples(ctx context.Context, start, end string, limit, offset int) ([]MetricSample, error)
	Close() error
}

// SampleSource is anything that can produce the most recent samples on demand.
type SampleSource interface {
	Fetch(ctx context.Context) ([]MetricSample, error)
}
