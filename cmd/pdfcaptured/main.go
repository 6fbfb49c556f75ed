// Command pdfcaptured runs this service as a long-lived HTTP daemon: a
// pool of Chromium instances serves POST /render requests for as long as
// the process runs, rather than paying browser startup cost per request
// the way cmd/pdfcapture does.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/lindholm/pdfcapture/browser"
	"github.com/lindholm/pdfcapture/config"
	"github.com/lindholm/pdfcapture/log"
	"github.com/lindholm/pdfcapture/metrics"
	"github.com/lindholm/pdfcapture/render"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (optional)")
		listenAddr = flag.String("listen", ":8080", "HTTP listen address")
	)
	flag.Parse()

	logger := log.New(logrus.New(), nil)

	if err := run(*configPath, *listenAddr, logger); err != nil {
		logger.Errorf("main", "%v", err)
		os.Exit(1)
	}
}

func run(configPath, listenAddr string, logger *log.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("applying log_level: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.LogFile != "" {
		hook, err := log.FileHookFromConfigLine(ctx, logger.Log, "file="+cfg.LogFile)
		if err != nil {
			return fmt.Errorf("configuring log_file: %w", err)
		}
		logger.Log.AddHook(hook)
	}

	browsers, err := browser.NewPool(ctx, cfg.BrowserPoolConfig(), logger)
	if err != nil {
		return fmt.Errorf("starting browser pool: %w", err)
	}

	svc := render.NewService(render.ServiceConfig{
		MaxPagesPerBrowser: cfg.MaxPagesPerBrowser,
		ResponseTimeout:    cfg.ResponseTimeout,
	}, browsers, logger)
	defer svc.Shutdown(context.Background())

	m := metrics.New("pdfcapture", prometheus.DefaultRegisterer)
	go pollPoolStats(ctx, browsers, m)

	mux := http.NewServeMux()
	mux.Handle("/render", &renderHandler{svc: svc, defaults: cfg.DefaultJsSettings(), logger: logger, metrics: m})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Infof("main", "listening on %s", listenAddr)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed { //nolint:errorlint // stdlib sentinel
			return err
		}
	case <-ctx.Done():
		logger.Infof("main", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

func pollPoolStats(ctx context.Context, pool *browser.Pool, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats := pool.Stats()
			m.ObservePoolStats(stats.Size, stats.Available, stats.TotalRestarts)
		case <-ctx.Done():
			return
		}
	}
}
