// Package main provides the entry point for the paper ranking HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-ranking-service/internal/app"
	"github.com/helixir/paper-ranking-service/internal/config"
	httpserver "github.com/helixir/paper-ranking-service/internal/server/http"
	"github.com/helixir/paper-ranking-service/internal/temporal"
	"github.com/helixir/paper-ranking-service/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg, "server")
	logger.Info().Msg("paper-ranking-service server starting")
	for _, missing := range cfg.MissingKeys() {
		logger.Warn().Str("credential", missing).Msg("credential not set; the feature will degrade")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := app.InitTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown error")
		}
	}()

	metrics := app.NewMetrics(cfg)

	publisher, err := app.NewPublisher(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer publisher.Close()

	searchSvc, err := app.NewSearchService(ctx, cfg, publisher, logger, metrics)
	if err != nil {
		return err
	}
	summarizer, err := app.NewSummarizer(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	mediaSvc, err := app.NewMediaService(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create media service: %w", err)
	}

	deps := httpserver.Deps{
		Search:    searchSvc,
		Summaries: summarizer,
		Media:     mediaSvc,
		Store:     mediaSvc.Store(),
		Metrics:   metrics,
	}

	// Background media generation is optional.
	if cfg.Temporal.Enabled {
		temporalClient, err := temporal.NewClient(app.TemporalClientConfig(cfg), logger)
		if err != nil {
			return fmt.Errorf("connect to temporal: %w", err)
		}
		workflowClient := temporal.NewMediaWorkflowClient(temporalClient, app.TemporalClientConfig(cfg))
		defer workflowClient.Close()

		deps.Workflows = workflowClient
		deps.WorkflowFunc = workflows.MediaWorkflow
		logger.Info().
			Str("host_port", cfg.Temporal.HostPort).
			Str("namespace", cfg.Temporal.Namespace).
			Msg("temporal client connected")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	}
	httpSrv := httpserver.NewServer(httpCfg, deps, logger)

	// Prometheus metrics are served on a separate port.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.ReadTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-ranking-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-ranking-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-ranking-service shutdown complete")
	return nil
}
