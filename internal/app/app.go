// Package app builds the service components from configuration. The server,
// the worker and the CLI share it so they wire providers the same way.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/paper-ranking-service/internal/config"
	"github.com/helixir/paper-ranking-service/internal/events"
	"github.com/helixir/paper-ranking-service/internal/media"
	"github.com/helixir/paper-ranking-service/internal/observability"
	"github.com/helixir/paper-ranking-service/internal/oracle"
	"github.com/helixir/paper-ranking-service/internal/papersources/pubmed"
	"github.com/helixir/paper-ranking-service/internal/ranking"
	"github.com/helixir/paper-ranking-service/internal/search"
	"github.com/helixir/paper-ranking-service/internal/summary"
	"github.com/helixir/paper-ranking-service/internal/temporal"
	"github.com/helixir/paper-ranking-service/internal/translate"
)

// Publisher is an event publisher that owns a connection.
type Publisher interface {
	events.Publisher
	Close() error
}

// NewLogger builds the root logger for a binary.
func NewLogger(cfg *config.Config, component string) zerolog.Logger {
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	return logger.With().Str("component", component).Logger()
}

// NewMetrics returns the Prometheus metrics, or nil when metrics are disabled.
func NewMetrics(cfg *config.Config) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewMetrics(cfg.Metrics.Namespace)
}

// InitTracing installs the OTLP tracer provider when tracing is enabled.
func InitTracing(ctx context.Context, cfg *config.Config) (observability.ShutdownFunc, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
}

// NewPublisher returns a Kafka publisher, or a no-op one when Kafka is off.
func NewPublisher(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (Publisher, error) {
	if !cfg.Kafka.Enabled {
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return p, nil
}

// NewLookup builds the rate-limited impact factor oracle.
func NewLookup(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*ranking.OracleLookup, error) {
	asker, err := oracle.NewAsker(ctx, oracle.FactoryConfig{
		Provider:    strings.ToLower(cfg.Oracle.Provider),
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		BaseURL:     cfg.Oracle.BaseURL,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     cfg.Oracle.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	return ranking.NewOracleLookup(oracle.Instrument(asker, "metric_lookup", metrics), ranking.OracleLookupConfig{
		MetricName:     cfg.Oracle.MetricName,
		NegativeMarker: cfg.Oracle.NegativeMarker,
		CallTimeout:    cfg.Oracle.Timeout,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.Oracle.RatePerSecond), cfg.Oracle.Burst),
	}), nil
}

// NewPubMed builds the PubMed client.
func NewPubMed(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) *pubmed.Client {
	return pubmed.New(pubmed.Config{
		BaseURL:    cfg.PubMed.BaseURL,
		APIKey:     cfg.PubMed.APIKey,
		Timeout:    cfg.PubMed.Timeout,
		RateLimit:  cfg.PubMed.RateLimit,
		MaxResults: cfg.PubMed.MaxResults,
		Enabled:    cfg.PubMed.Enabled,
	}, pubmed.WithLogger(logger), pubmed.WithMetrics(metrics))
}

// NewTranslator builds the search term translator. Without Baidu
// credentials terms pass through untranslated.
func NewTranslator(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*translate.Service, error) {
	var backend translate.Translator
	if strings.EqualFold(cfg.Translate.Provider, config.ProviderBaidu) && cfg.Translate.AppID != "" && cfg.Translate.SecretKey != "" {
		backend = translate.NewBaiduClient(translate.BaiduConfig{
			AppID:     cfg.Translate.AppID,
			SecretKey: cfg.Translate.SecretKey,
			BaseURL:   cfg.Translate.BaseURL,
			Timeout:   cfg.Translate.Timeout,
		})
	} else {
		logger.Warn().Msg("translation disabled: search terms are sent as entered")
	}
	svc, err := translate.NewService(backend, cfg.Translate.TargetLang, cfg.Translate.CacheSize, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("create translator: %w", err)
	}
	return svc, nil
}

// NewSearchService builds the search pipeline: translator, PubMed, oracle
// lookup and ranking.
func NewSearchService(ctx context.Context, cfg *config.Config, publisher events.Publisher, logger zerolog.Logger, metrics *observability.Metrics) (*search.Service, error) {
	translator, err := NewTranslator(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	lookup, err := NewLookup(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}
	return search.NewService(
		NewPubMed(cfg, logger, metrics),
		translator,
		lookup,
		publisher,
		search.Config{
			DefaultTopN: cfg.Search.DefaultTopN,
			MaxResults:  cfg.Search.MaxResults,
			Concurrency: cfg.Oracle.Concurrency,
		},
		logger,
		metrics,
	), nil
}

// NewSummarizer builds the paper summarizer.
func NewSummarizer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*summary.Summarizer, error) {
	asker, err := oracle.NewAsker(ctx, oracle.FactoryConfig{
		Provider:     strings.ToLower(cfg.Summary.Provider),
		APIKey:       cfg.Summary.APIKey,
		Model:        cfg.Summary.Model,
		BaseURL:      cfg.Summary.BaseURL,
		SystemPrompt: cfg.Summary.SystemPrompt,
		Temperature:  cfg.Summary.Temperature,
		Timeout:      cfg.Summary.Timeout,
		MaxRetries:   cfg.Summary.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create summary oracle: %w", err)
	}
	return summary.New(oracle.Instrument(asker, "summary", metrics), summary.Config{Timeout: cfg.Summary.Timeout}, logger), nil
}

// NewMediaService builds the image store and the configured providers.
// A provider set to "none" leaves that image kind skipped.
func NewMediaService(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*media.Service, error) {
	store, err := media.NewStore(cfg.Media.Dir)
	if err != nil {
		return nil, err
	}
	downloader := media.NewDownloader(media.DownloaderConfig{
		Timeout: cfg.Media.DownloadTimeout,
		MaxSize: cfg.Media.DownloadMaxBytes,
	})

	var screenshotter media.Screenshotter
	switch strings.ToLower(cfg.Media.ScreenshotProvider) {
	case config.ProviderURLScan:
		screenshotter = media.NewURLScanProvider(media.URLScanConfig{
			APIKey:       cfg.Media.URLScan.APIKey,
			BaseURL:      cfg.Media.URLScan.BaseURL,
			Wait:         cfg.Media.URLScan.Wait,
			PollInterval: cfg.Media.URLScan.PollInterval,
			MaxPolls:     cfg.Media.URLScan.MaxPolls,
			Visibility:   cfg.Media.URLScan.Visibility,
			Timeout:      cfg.Media.URLScan.Timeout,
		})
	case config.ProviderChrome:
		screenshotter = media.NewChromeProvider(media.ChromeConfig{
			ExecPath: cfg.Media.Chrome.ExecPath,
			Quality:  cfg.Media.Chrome.Quality,
			Settle:   cfg.Media.Chrome.Settle,
			Timeout:  cfg.Media.Chrome.Timeout,
		})
	}

	var illustrator media.Illustrator
	if strings.EqualFold(cfg.Media.IllustrationProvider, config.ProviderDashScope) {
		illustrator = media.NewDashScopeProvider(media.DashScopeConfig{
			APIKey:       cfg.Media.DashScope.APIKey,
			BaseURL:      cfg.Media.DashScope.BaseURL,
			Model:        cfg.Media.DashScope.Model,
			Size:         cfg.Media.DashScope.Size,
			PollInterval: cfg.Media.DashScope.PollInterval,
			TaskTimeout:  cfg.Media.DashScope.TaskTimeout,
		}, downloader)
	}

	return media.NewService(store, screenshotter, illustrator, logger, metrics), nil
}

// TemporalClientConfig maps the temporal config section.
func TemporalClientConfig(cfg *config.Config) temporal.ClientConfig {
	cc := temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}
	if t := cfg.Temporal.TLS; t.Enabled {
		cc.TLS = &temporal.TLSConfig{
			Enabled:    true,
			CertPath:   t.CertPath,
			KeyPath:    t.KeyPath,
			CACertPath: t.CACertPath,
			ServerName: t.ServerName,
		}
	}
	return cc
}
