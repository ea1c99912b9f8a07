// Package poller drives the dashboard's fetch, merge and render cycle.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"btc-metrics/internal/buffer"
	"btc-metrics/internal/domain"
	"btc-metrics/internal/util"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultFetchTimeout = 5 * time.Second

	// FetchErrorMessage is what the renderer shows when a cycle fails.
	FetchErrorMessage = "failed to fetch metrics"
)

// Renderer receives the window after every cycle. errMsg is empty on success.
type Renderer interface {
	Render(window buffer.Window, errMsg string)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(window buffer.Window, errMsg string)

func (f RendererFunc) Render(window buffer.Window, errMsg string) { f(window, errMsg) }

// Poller owns the window between cycles. Only the Run goroutine writes it.
type Poller struct {
	source       domain.SampleSource
	renderer     Renderer
	interval     time.Duration
	fetchTimeout time.Duration
	capacity     int
	logger       *util.Logger

	mu     sync.RWMutex
	window buffer.Window
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

func WithCapacity(n int) Option {
	return func(p *Poller) {
		p.capacity = n
	}
}

func WithLogger(l *util.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

func New(source domain.SampleSource, renderer Renderer, opts ...Option) *Poller {
	p := &Poller{
		source:       source,
		renderer:     renderer,
		interval:     DefaultInterval,
		fetchTimeout: DefaultFetchTimeout,
		capacity:     buffer.Capacity,
		logger:       &util.Logger{},
		window:       buffer.Window{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run performs one cycle immediately and then one per interval until ctx is
// cancelled. It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs a single fetch, merge and render cycle. A failed fetch leaves
// the window untouched and reports FetchErrorMessage.
func (p *Poller) Poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	samples, err := p.source.Fetch(fetchCtx)
	cancel()

	// Teardown in progress; the view is gone.
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		p.logger.Warn("poll cycle failed", zap.Error(err))
		p.renderer.Render(p.Window(), FetchErrorMessage)
		return
	}

	p.mu.Lock()
	p.window = buffer.MergeN(p.window, samples, p.capacity)
	snapshot := append(buffer.Window{}, p.window...)
	p.mu.Unlock()

	p.logger.Debug("poll cycle merged",
		zap.Int("fetched", len(samples)),
		zap.Int("window", len(snapshot)))

	p.renderer.Render(snapshot, "")
}

// Window returns a copy of the current window.
func (p *Poller) Window() buffer.Window {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append(buffer.Window{}, p.window...)
}
