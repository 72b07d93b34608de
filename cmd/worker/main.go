// Package main provides the entry point for the paper media Temporal worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-ranking-service/internal/app"
	"github.com/helixir/paper-ranking-service/internal/config"
	"github.com/helixir/paper-ranking-service/internal/events"
	"github.com/helixir/paper-ranking-service/internal/temporal"
	"github.com/helixir/paper-ranking-service/internal/temporal/activities"
	"github.com/helixir/paper-ranking-service/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg, "worker")
	logger.Info().Msg("paper-ranking-service worker starting")

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
	if metrics != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer := &http.Server{
			Addr:        cfg.Server.MetricsAddress(),
			Handler:     metricsMux,
			ReadTimeout: cfg.Server.ReadTimeout,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer metricsServer.Close()
	}

	mediaSvc, err := app.NewMediaService(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create media service: %w", err)
	}

	clientCfg := app.TemporalClientConfig(cfg)
	temporalClient, err := temporal.NewClient(clientCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	workerConfig := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	if cfg.Temporal.MaxConcurrentActivities > 0 {
		workerConfig.MaxConcurrentActivityExecutionSize = cfg.Temporal.MaxConcurrentActivities
	}
	manager, err := temporal.NewWorkerManager(temporalClient, workerConfig)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	manager.RegisterWorkflow(workflows.MediaWorkflow)
	manager.RegisterActivity(activities.NewMediaActivities(mediaSvc))

	// Start media workflows from search.completed events if configured.
	if cfg.Kafka.MediaListener.Enabled {
		listener := events.NewMediaListener(
			events.ListenerConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
				GroupID: cfg.Kafka.MediaListener.GroupID,
			},
			temporal.NewMediaWorkflowClient(temporalClient, clientCfg),
			workflows.MediaWorkflow,
			mediaSvc.Store().Key,
			logger,
		)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close media listener")
			}
		}()

		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("media listener error")
			}
		}()

		logger.Info().
			Str("topic", cfg.Kafka.Topic).
			Str("group_id", cfg.Kafka.MediaListener.GroupID).
			Msg("media listener started")
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
