package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"btc-metrics/internal/collector"
	"btc-metrics/internal/config"
	"btc-metrics/internal/repository"
	"btc-metrics/internal/router"
	"btc-metrics/internal/stream"
	"btc-metrics/internal/telemetry"
	"btc-metrics/internal/upstream"
	"btc-metrics/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	addr := flag.String("addr", "", "listen address, overrides the config")
	dbPath := flag.String("db", "", "SQLite database path, overrides the config")
	noCollect := flag.Bool("no-collect", false, "serve stored samples without polling upstream")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while loading the config:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *noCollect {
		cfg.Collector.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid config:", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(util.LogOptions{
		Dir:     cfg.Log.Dir,
		File:    fileOrDefault(cfg.Log.File, "api.log"),
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while initializing the logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	fmt.Fprintf(os.Stderr, "\n%s: btc-metrics api started\n", time.Now().Format(time.RFC3339))

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", zap.Error(err))
		logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *util.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repository.NewSQLiteStore(cfg.Database.Path)
	if err := store.Init(); err != nil {
		return fmt.Errorf("initializing metric store: %w", err)
	}
	defer store.Close()

	metrics := telemetry.New()

	hub := stream.NewHub(logger.Named("stream"))
	hub.OnSubscribersChanged = func(n int) { metrics.Subscribers.Set(float64(n)) }
	defer hub.Close()

	if cfg.Collector.Enabled {
		heights := upstream.NewEsploraClient(cfg.Collector.EsploraURL, cfg.Collector.Timeout)
		prices := upstream.NewCoinGeckoClient(cfg.Collector.CoinGeckoURL, cfg.Collector.Timeout,
			upstream.WithRateLimit(cfg.Collector.PriceRate, 1))

		c := collector.New(heights, prices, store, cfg.Collector.Interval,
			collector.WithPublisher(hub),
			collector.WithMetrics(metrics),
			collector.WithLogger(logger.Named("collector")),
		)
		go func() {
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("collector stopped", zap.Error(err))
			}
		}()
		logger.Info("collector started",
			zap.Duration("interval", cfg.Collector.Interval),
			zap.String("esplora", cfg.Collector.EsploraURL),
			zap.String("coingecko", cfg.Collector.CoinGeckoURL))
	}

	handler := router.NewRouter(router.Options{
		Store:        store,
		Logger:       logger.Named("http"),
		Metrics:      metrics,
		Stream:       hub,
		HistoryLimit: cfg.Server.HistoryLimit,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
	})

	return router.Run(ctx, router.NewServer(cfg.Server.Addr, handler), logger)
}

func fileOrDefault(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
