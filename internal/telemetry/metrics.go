// Package telemetry holds the Prometheus instruments exported on /metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Collections     *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
	LastBlockHeight prometheus.Gauge
	LastBTCPrice    prometheus.Gauge
	Requests        *prometheus.CounterVec
	RateLimited     prometheus.Counter
	Subscribers     prometheus.Gauge
}

// New registers every instrument on a fresh registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Collections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btcm_collections_total",
				Help: "Collection cycles by result",
			},
			[]string{"result"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btcm_upstream_errors_total",
				Help: "Failed upstream calls",
			},
			[]string{"upstream"},
		),
		LastBlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btcm_last_block_height",
			Help: "Most recently collected chain tip height",
		}),
		LastBTCPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btcm_last_btc_price_usd",
			Help: "Most recently collected BTC price in USD",
		}),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "btcm_http_requests_total",
				Help: "API requests by route template and method",
			},
			[]string{"route", "method"},
		),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btcm_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btcm_stream_subscribers",
			Help: "Connected WebSocket subscribers",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Collections,
		m.UpstreamErrors,
		m.LastBlockHeight,
		m.LastBTCPrice,
		m.Requests,
		m.RateLimited,
		m.Subscribers,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
