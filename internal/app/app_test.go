package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-ranking-service/internal/config"
	"github.com/helixir/paper-ranking-service/internal/events"
	"github.com/helixir/paper-ranking-service/internal/media"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Oracle.Provider = "DashScope"
	cfg.Oracle.APIKey = "test-key"
	cfg.Oracle.Model = "qwen-plus"
	cfg.Oracle.Timeout = 5 * time.Second
	cfg.Oracle.RatePerSecond = 2
	cfg.Oracle.Burst = 1
	cfg.Oracle.MetricName = "impact factor"
	cfg.Oracle.NegativeMarker = "无法获取"
	cfg.Translate.TargetLang = "en"
	cfg.Translate.CacheSize = 16
	cfg.Media.Dir = t.TempDir()
	cfg.Media.ScreenshotProvider = config.ProviderNone
	cfg.Media.IllustrationProvider = config.ProviderNone
	return cfg
}

func TestNewMetrics_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	assert.Nil(t, NewMetrics(cfg))
}

func TestNewPublisher_KafkaDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Enabled = false

	p, err := NewPublisher(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.IsType(t, events.NoopPublisher{}, p)
	assert.NoError(t, p.Close())
}

func TestNewLookup(t *testing.T) {
	t.Run("case insensitive provider", func(t *testing.T) {
		lookup, err := NewLookup(context.Background(), testConfig(t), nil)
		require.NoError(t, err)
		assert.Contains(t, lookup.Prompt("Nature"), "Nature")
		assert.Contains(t, lookup.Prompt("Nature"), "impact factor")
		assert.Contains(t, lookup.Prompt("Nature"), "无法获取")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Oracle.Provider = "claude-on-a-napkin"
		_, err := NewLookup(context.Background(), cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create oracle")
	})
}

func TestNewTranslator_WithoutCredentialsPassesThrough(t *testing.T) {
	cfg := testConfig(t)
	cfg.Translate.Provider = config.ProviderBaidu

	tr, err := NewTranslator(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "肿瘤", tr.ToTarget(context.Background(), "肿瘤"))
	assert.Equal(t, "tumor", tr.ToTarget(context.Background(), " tumor "))
}

func TestNewMediaService_ProvidersNone(t *testing.T) {
	cfg := testConfig(t)

	svc, err := NewMediaService(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Media.Dir, svc.Store().Dir())

	res, err := svc.Generate(context.Background(), media.Request{
		PaperID: "1",
		Title:   "Deep learning for protein folding",
		URL:     "https://pubmed.ncbi.nlm.nih.gov/1/",
	})
	require.NoError(t, err)
	assert.Equal(t, media.StatusSkipped, res.Screenshot.Status)
	assert.Equal(t, media.StatusSkipped, res.Illustration.Status)
	assert.Contains(t, res.Message(), media.NotAvailable)
}

func TestNewMediaService_ProvidersConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.ScreenshotProvider = config.ProviderChrome
	cfg.Media.IllustrationProvider = config.ProviderDashScope

	svc, err := NewMediaService(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	// A paper without url or title never reaches the providers.
	res, err := svc.Generate(context.Background(), media.Request{PaperID: "2"})
	require.NoError(t, err)
	assert.Equal(t, "paper has no url", res.Screenshot.Error)
	assert.Equal(t, "paper has no title", res.Illustration.Error)
}

func TestTemporalClientConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Temporal.HostPort = "temporal:7233"
	cfg.Temporal.Namespace = "papers"
	cfg.Temporal.TaskQueue = "media"

	got := TemporalClientConfig(cfg)
	assert.Equal(t, "temporal:7233", got.HostPort)
	assert.Equal(t, "papers", got.Namespace)
	assert.Equal(t, "media", got.TaskQueue)
	assert.Nil(t, got.TLS)

	cfg.Temporal.TLS.Enabled = true
	cfg.Temporal.TLS.ServerName = "papers.tmprl.cloud"
	got = TemporalClientConfig(cfg)
	require.NotNil(t, got.TLS)
	assert.True(t, got.TLS.Enabled)
	assert.Equal(t, "papers.tmprl.cloud", got.TLS.ServerName)
}
