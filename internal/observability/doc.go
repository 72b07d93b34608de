// Package observability provides logging, metrics, and tracing support for
// the paper ranking service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, oracle lookups, media and events
//   - OpenTelemetry tracing exported over OTLP gRPC
//   - Context helpers for propagating request and correlation IDs
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "log/paper_ranker.log",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("journal", name).Msg("group metric resolved")
//
// Enrich a logger from a request context:
//
//	logger = observability.LoggerFromContext(ctx, logger)
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_ranking")
//	metrics.RecordOracleLookup("value", elapsed.Seconds())
//
// # Tracing
//
//	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
//	    Enabled:     true,
//	    Endpoint:    "otel-collector:4317",
//	    ServiceName: "paper-ranking-service",
//	    SampleRate:  0.1,
//	})
//	defer shutdown(context.Background())
package observability
