// Package collector samples block height and price on an interval and stores each observation.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"btc-metrics/internal/domain"
	"btc-metrics/internal/repository"
	"btc-metrics/internal/telemetry"
	"btc-metrics/internal/upstream"
	"btc-metrics/internal/util"
)

// Publisher is notified of every stored sample.
type Publisher interface {
	Publish(sample domain.MetricSample)
}

type Collector struct {
	heights   upstream.HeightFetcher
	prices    upstream.PriceFetcher
	store     domain.MetricStore
	publisher Publisher
	metrics   *telemetry.Metrics
	logger    *util.Logger
	interval  time.Duration
	now       func() time.Time
}

type Option func(*Collector)

func WithPublisher(p Publisher) Option {
	return func(c *Collector) { c.publisher = p }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

func WithLogger(l *util.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

func New(heights upstream.HeightFetcher, prices upstream.PriceFetcher, store domain.MetricStore, interval time.Duration, opts ...Option) *Collector {
	c := &Collector{
		heights:  heights,
		prices:   prices,
		store:    store,
		interval: interval,
		logger:   &util.Logger{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run collects once immediately and then on every tick until ctx is done.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Collect(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("collection failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			c.logger.Info("collector stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Collect fetches both values and stores a sample. Nothing is stored unless
// both upstream calls succeed.
func (c *Collector) Collect(ctx context.Context) (domain.MetricSample, error) {
	height, heightErr := c.heights.FetchHeight(ctx)
	if heightErr != nil {
		c.countUpstreamError("esplora")
	}

	price, priceErr := c.prices.FetchPrice(ctx)
	if priceErr != nil {
		c.countUpstreamError("coingecko")
	}

	if err := errors.Join(heightErr, priceErr); err != nil {
		c.countCollection("error")
		return domain.MetricSample{}, fmt.Errorf("fetching upstream data: %w", err)
	}

	sample := domain.MetricSample{
		BlockHeight: height,
		BTCPrice:    price,
		Timestamp:   c.now().UTC().Format(time.RFC3339),
	}

	if err := c.store.StoreSample(ctx, sample); err != nil {
		if errors.Is(err, repository.ErrDuplicateTimestamp) {
			c.logger.Warn("sample already stored for this second", zap.String("timestamp", sample.Timestamp))
		}
		c.countCollection("error")
		return domain.MetricSample{}, fmt.Errorf("storing sample: %w", err)
	}

	c.logger.Info("sample collected",
		zap.Int64("block_height", sample.BlockHeight),
		zap.Float64("btc_price", sample.BTCPrice),
		zap.String("timestamp", sample.Timestamp))

	c.countCollection("ok")
	if c.metrics != nil {
		c.metrics.LastBlockHeight.Set(float64(sample.BlockHeight))
		c.metrics.LastBTCPrice.Set(sample.BTCPrice)
	}
	if c.publisher != nil {
		c.publisher.Publish(sample)
	}

	return sample, nil
}

func (c *Collector) countUpstreamError(name string) {
	if c.metrics != nil {
		c.metrics.UpstreamErrors.WithLabelValues(name).Inc()
	}
}

func (c *Collector) countCollection(result string) {
	if c.metrics != nil {
		c.metrics.Collections.WithLabelValues(result).Inc()
	}
}
