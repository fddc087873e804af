// Command signalhub runs the signal ingestion and dispatch server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/signalhub/internal/app"
	"github.com/rickgao/signalhub/internal/auth"
	"github.com/rickgao/signalhub/internal/config"
	"github.com/rickgao/signalhub/internal/httpapi"
	"github.com/rickgao/signalhub/internal/metrics"
	"github.com/rickgao/signalhub/internal/router"
	"github.com/rickgao/signalhub/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (built-in channels when empty)")
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before config")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting signalhub", version.LogAttrs()...)

	if err := run(cfg, logger); err != nil {
		logger.Error("signalhub exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	r, err := app.Build(cfg, nil,
		router.WithLogger(logger.With("component", "router")),
		router.WithObserver(collector),
	)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	creds, err := auth.LoadCredentials(cfg.Server.SecretKey)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var limit httpapi.RateLimitConfig
	if cfg.Server.RateLimit.Enabled() {
		limit = httpapi.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		}
	}
	server := httpapi.New(r, creds, httpapi.Config{
		RateLimit:      limit,
		MetricsPath:    cfg.Server.MetricsPath,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, logger.With("component", "httpapi"))

	if cfg.Log.StatsSchedule != "off" {
		reporter, err := metrics.NewReporter(r, cfg.Log.StatsSchedule, logger.With("component", "stats"))
		if err != nil {
			return fmt.Errorf("create stats reporter: %w", err)
		}
		reporter.Start()
		defer reporter.Stop()
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "channels", r.Channels())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")

	// Websocket feeds do not return on their own; release them first.
	server.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
