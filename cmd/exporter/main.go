package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/R167/raspi_exporter/internal/client"
	"github.com/R167/raspi_exporter/internal/collector"
	"github.com/R167/raspi_exporter/internal/config"
	"github.com/R167/raspi_exporter/internal/server"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	registry := collector.NewRegistry()

	var collectors []collector.Collector
	if cfg.HasThrottled() {
		registerer, err := collector.NewThrottledRegisterer(registry)
		if err != nil {
			logger.Error("Failed to register throttled metrics", "error", err)
			os.Exit(1)
		}
		runner := client.NewVcgencmdRunner(cfg.Vcgencmd, cfg.CommandTimeout)
		collectors = append(collectors, collector.NewThrottledCollector(runner, client.ThrottledParser{}, registerer, logger))
		logger.Debug("Throttled collector enabled", "command", runner.String())
	}

	handler := collector.NewHandler(registry, logger, collectors...)

	srvCfg := server.DefaultConfig()
	srvCfg.Port = cfg.Port
	srvCfg.RateLimit = rate.Limit(cfg.RateLimit)
	srvCfg.RateLimitBurst = cfg.RateLimitBurst
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeout
	srv := server.New(srvCfg, handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting raspi exporter", "port", cfg.Port, "metrics", cfg.EnableMetrics.String())

	if err := srv.Run(ctx); err != nil {
		logger.Error("HTTP server error", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("Exporter stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var h slog.Handler
	switch cfg.Log {
	case config.LogJSON:
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}
