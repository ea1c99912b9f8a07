package router

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"btc-metrics/internal/domain"
	"btc-metrics/internal/endpoints"
	"btc-metrics/internal/telemetry"
	"btc-metrics/internal/util"
)

const ShutdownTimeout = 25 * time.Second

type Options struct {
	Store        domain.MetricStore
	Logger       *util.Logger
	Metrics      *telemetry.Metrics
	Stream       http.Handler
	HistoryLimit int
	// RateLimit is requests per second per client IP on /api; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter wires every route. CORS wraps the mux so preflight requests are
// answered for any path.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = &util.Logger{}
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	addRoutes(api, opts)

	r.HandleFunc("/health", (&endpoints.Metrics{}).HealthHandler).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	if opts.RateLimit > 0 {
		api.Use(rateLimitMiddleware(newClientLimiter(opts.RateLimit, opts.RateBurst), opts.Metrics))
	}

	r.Use(loggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		r.Use(requestMetricsMiddleware(opts.Metrics))
	}

	return corsMiddleware(r)
}

func addRoutes(r *mux.Router, opts Options) {
	metricsHandler := &endpoints.Metrics{}
	metricsHandler.SetHistoryLimit(opts.HistoryLimit)
	metricsHandler.Init(opts.Store, opts.Logger.Named("api"))

	// GetHistoryHandler rejects other methods itself with the 405 envelope.
	r.HandleFunc("/metrics", metricsHandler.GetHistoryHandler)
	r.HandleFunc("/metrics/latest", metricsHandler.GetLatestHandler).Methods(http.MethodGet)
	if opts.Stream != nil {
		r.Handle("/metrics/ws", opts.Stream).Methods(http.MethodGet)
	}
	r.HandleFunc("/metrics/{limit}/{offset}", metricsHandler.GetMetricsHandler).Methods(http.MethodGet, http.MethodPost)
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run serves until ctx is cancelled and then shuts the server down gracefully.
func Run(ctx context.Context, server *http.Server, logger *util.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := gracefulShutdown(server, ShutdownTimeout); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

func gracefulShutdown(server *http.Server, maximumTime time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maximumTime)
	defer cancel()

	return server.Shutdown(ctx)
}

func loggingMiddleware(logger *util.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("uri", r.RequestURI),
				zap.Duration("took", time.Since(start)))
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestMetricsMiddleware(m *telemetry.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unknown"
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.Requests.WithLabelValues(route, r.Method).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// limiterIdleTTL is how long a client's bucket is kept after its last request.
const limiterIdleTTL = 10 * time.Minute

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ttl are swept out so the map tracks only recent clients.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     limiterIdleTTL,
		now:     time.Now,
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweepLocked(now)
	}

	e, ok := c.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = e
	}
	e.lastSeen = now
	c.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (c *clientLimiter) sweepLocked(now time.Time) {
	for key, e := range c.clients {
		if now.Sub(e.lastSeen) > c.ttl {
			delete(c.clients, key)
		}
	}
	c.lastSweep = now
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func rateLimitMiddleware(limiter *clientLimiter, m *telemetry.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !limiter.allow(host) {
				if m != nil {
					m.RateLimited.Inc()
				}
				w.Header().Set("Retry-After", "1")
				(endpoints.APIResponse{}).WriteErrorResponseWithStatusCode(w, endpoints.ErrRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
