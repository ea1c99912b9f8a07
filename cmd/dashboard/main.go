package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"btc-metrics/internal/config"
	"btc-metrics/internal/dashboard"
	"btc-metrics/internal/poller"
	"btc-metrics/internal/source"
	"btc-metrics/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	url := flag.String("url", "", "metrics endpoint, overrides the config")
	interval := flag.Duration("interval", 0, "poll interval, overrides the config")
	once := flag.Bool("once", false, "poll once, print the result and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while loading the config:", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Dashboard.APIURL = *url
	}
	if *interval > 0 {
		cfg.Dashboard.Interval = *interval
	}
	// The dashboard never collects; skip collector checks.
	cfg.Collector.Enabled = false
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid config:", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs only go to the file.
	logger, err := util.NewLogger(util.LogOptions{
		Dir:   cfg.Log.Dir,
		File:  "dashboard.log",
		Level: cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while initializing the logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := source.NewHTTPSource(cfg.Dashboard.APIURL)
	opts := []poller.Option{
		poller.WithInterval(cfg.Dashboard.Interval),
		poller.WithFetchTimeout(cfg.Dashboard.FetchTimeout),
		poller.WithLogger(logger.Named("poller")),
	}

	if *once {
		poller.New(src, dashboard.NewWriterRenderer(os.Stdout), opts...).Poll(ctx)
		return
	}

	if err := runUI(ctx, cfg, src, opts, logger); err != nil {
		logger.Error("dashboard stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Close()
		os.Exit(1)
	}
}

func runUI(ctx context.Context, cfg *config.Config, src *source.HTTPSource, opts []poller.Option, logger *util.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := dashboard.NewModel(cfg.Dashboard.APIURL, cfg.Dashboard.Interval)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	p := poller.New(src, dashboard.NewProgramRenderer(program), opts...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	logger.Info("dashboard started",
		zap.String("url", cfg.Dashboard.APIURL),
		zap.Duration("interval", cfg.Dashboard.Interval))

	_, err := program.Run()

	cancel()
	select {
	case <-done:
	case <-time.After(cfg.Dashboard.FetchTimeout + time.Second):
		logger.Warn("poller did not stop in time")
	}

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
