package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secretEnvVars = []string{
	"DASHSCOPE_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	"BAIDU_APP_ID", "BAIDU_SECRET_KEY", "URLSCAN_API_KEY", "PUBMED_API_KEY",
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "paper_ranking", cfg.Metrics.Namespace)

	// Tracing defaults
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "paper-ranking-service", cfg.Tracing.ServiceName)
	assert.Equal(t, 0.1, cfg.Tracing.SampleRate)

	// Oracle defaults
	assert.Equal(t, ProviderDashScope, cfg.Oracle.Provider)
	assert.Equal(t, "qwen-plus", cfg.Oracle.Model)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 2.0, cfg.Oracle.RatePerSecond)
	assert.Equal(t, 1, cfg.Oracle.Burst)
	assert.Equal(t, 1, cfg.Oracle.Concurrency)
	assert.Equal(t, "impact factor", cfg.Oracle.MetricName)
	assert.Equal(t, "无法获取", cfg.Oracle.NegativeMarker)

	// Summary defaults
	assert.Equal(t, "deepseek-v3", cfg.Summary.Model)

	// PubMed defaults
	assert.True(t, cfg.PubMed.Enabled)
	assert.Equal(t, 3.0, cfg.PubMed.RateLimit)

	// Media defaults
	assert.Equal(t, "dynamic_images", cfg.Media.Dir)
	assert.Equal(t, ProviderURLScan, cfg.Media.ScreenshotProvider)
	assert.Equal(t, 15*time.Second, cfg.Media.URLScan.Wait)
	assert.Equal(t, "wan2.2-t2i-flash", cfg.Media.DashScope.Model)
	assert.Equal(t, "1440*1080", cfg.Media.DashScope.Size)

	// Temporal and Kafka are opt-in
	assert.False(t, cfg.Temporal.Enabled)
	assert.Equal(t, "paper-media-tasks", cfg.Temporal.TaskQueue)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Kafka.MediaListener.Enabled)

	// Search defaults
	assert.Equal(t, 10, cfg.Search.DefaultTopN)
	assert.Equal(t, 20, cfg.Search.MaxResults)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PAPERRANK_SERVER_HTTP_PORT", "8888")
	t.Setenv("PAPERRANK_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERRANK_ORACLE_PROVIDER", "gemini")
	t.Setenv("PAPERRANK_ORACLE_MODEL", "gemini-2.0-flash")
	t.Setenv("PAPERRANK_ORACLE_CONCURRENCY", "4")
	t.Setenv("PAPERRANK_SEARCH_DEFAULT_TOP_N", "5")
	t.Setenv("PAPERRANK_MEDIA_SCREENSHOT_PROVIDER", "chrome")
	t.Setenv("PAPERRANK_TEMPORAL_ENABLED", "true")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ProviderGemini, cfg.Oracle.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Oracle.Model)
	assert.Equal(t, 4, cfg.Oracle.Concurrency)
	assert.Equal(t, "gemini-key", cfg.Oracle.APIKey)
	assert.Equal(t, 5, cfg.Search.DefaultTopN)
	assert.Equal(t, ProviderChrome, cfg.Media.ScreenshotProvider)
	assert.True(t, cfg.Temporal.Enabled)
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("DASHSCOPE_API_KEY", "sk-dashscope")
	t.Setenv("BAIDU_APP_ID", "app")
	t.Setenv("BAIDU_SECRET_KEY", "secret")
	t.Setenv("URLSCAN_API_KEY", "urlscan")
	t.Setenv("PUBMED_API_KEY", "ncbi")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-dashscope", cfg.Oracle.APIKey)
	assert.Equal(t, "sk-dashscope", cfg.Summary.APIKey)
	assert.Equal(t, "sk-dashscope", cfg.Media.DashScope.APIKey)
	assert.Equal(t, "app", cfg.Translate.AppID)
	assert.Equal(t, "secret", cfg.Translate.SecretKey)
	assert.Equal(t, "urlscan", cfg.Media.URLScan.APIKey)
	assert.Equal(t, "ncbi", cfg.PubMed.APIKey)
	assert.Empty(t, cfg.MissingKeys())
}

func TestLoad_MissingKeysDoNotFail(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)

	missing := cfg.MissingKeys()
	assert.Len(t, missing, 5)
	assert.Contains(t, strings.Join(missing, ";"), "URLSCAN_API_KEY")
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name:        "HTTP port zero",
			modifyFunc:  func(c *Config) { c.Server.HTTPPort = 0 },
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name:        "HTTP port too high",
			modifyFunc:  func(c *Config) { c.Server.HTTPPort = 70000 },
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name:        "metrics port invalid",
			modifyFunc:  func(c *Config) { c.Server.MetricsPort = -5 },
			expectedErr: "invalid metrics port: -5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_Providers(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name:        "unknown oracle provider",
			modifyFunc:  func(c *Config) { c.Oracle.Provider = "bedrock" },
			expectedErr: "unknown oracle provider: bedrock",
		},
		{
			name:        "unknown summary provider",
			modifyFunc:  func(c *Config) { c.Summary.Provider = "" },
			expectedErr: "unknown summary provider",
		},
		{
			name:        "unknown translate provider",
			modifyFunc:  func(c *Config) { c.Translate.Provider = "google" },
			expectedErr: "unknown translate provider: google",
		},
		{
			name:        "unknown screenshot provider",
			modifyFunc:  func(c *Config) { c.Media.ScreenshotProvider = "selenium" },
			expectedErr: "unknown screenshot provider: selenium",
		},
		{
			name:        "unknown illustration provider",
			modifyFunc:  func(c *Config) { c.Media.IllustrationProvider = "dalle" },
			expectedErr: "unknown illustration provider: dalle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_OracleLimits(t *testing.T) {
	t.Run("rate must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Oracle.RatePerSecond = 0
		assert.ErrorContains(t, cfg.Validate(), "rate_per_second")
	})

	t.Run("burst must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Oracle.Burst = 0
		assert.ErrorContains(t, cfg.Validate(), "burst")
	})

	t.Run("concurrency must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Oracle.Concurrency = -1
		assert.ErrorContains(t, cfg.Validate(), "concurrency")
	})
}

func TestValidate_Search(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultTopN = 0
	assert.ErrorContains(t, cfg.Validate(), "default_top_n")

	cfg = validConfig()
	cfg.Search.MaxResults = 0
	assert.ErrorContains(t, cfg.Validate(), "max_results")
}

func TestValidate_LogLevel(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			assert.NoError(t, cfg.Validate())
		})
	}

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "invalid"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level: invalid")
	})
}

func TestValidate_Tracing(t *testing.T) {
	t.Run("tracing enabled without endpoint", func(t *testing.T) {
		cfg := validConfig()
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = ""
		assert.ErrorContains(t, cfg.Validate(), "tracing endpoint is required when tracing is enabled")
	})

	t.Run("sample rate too high", func(t *testing.T) {
		cfg := validConfig()
		cfg.Tracing.SampleRate = 1.5
		assert.ErrorContains(t, cfg.Validate(), "tracing sample rate must be between 0 and 1")
	})
}

func TestValidate_TemporalAndKafka(t *testing.T) {
	t.Run("temporal enabled without task queue", func(t *testing.T) {
		cfg := validConfig()
		cfg.Temporal.Enabled = true
		cfg.Temporal.TaskQueue = ""
		assert.ErrorContains(t, cfg.Validate(), "temporal host_port and task_queue are required")
	})

	t.Run("kafka enabled without brokers", func(t *testing.T) {
		cfg := validConfig()
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = nil
		assert.ErrorContains(t, cfg.Validate(), "kafka brokers and topic are required")
	})

	t.Run("listener without group", func(t *testing.T) {
		cfg := validConfig()
		cfg.Kafka.MediaListener.Enabled = true
		cfg.Kafka.MediaListener.GroupID = ""
		assert.ErrorContains(t, cfg.Validate(), "group_id")
	})

	t.Run("disabled sections are not checked", func(t *testing.T) {
		cfg := validConfig()
		cfg.Temporal = TemporalConfig{}
		cfg.Kafka = KafkaConfig{}
		assert.NoError(t, cfg.Validate())
	})
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080, MetricsPort: 9091}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

// clearEnvVars unsets every variable Load reads, restoring them after the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, "PAPERRANK_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	for _, key := range secretEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 0.1,
		},
		Oracle: OracleConfig{
			Provider:      ProviderDashScope,
			RatePerSecond: 2,
			Burst:         1,
			Concurrency:   1,
		},
		Summary:   SummaryConfig{Provider: ProviderDashScope},
		Translate: TranslateConfig{Provider: ProviderBaidu},
		Media: MediaConfig{
			ScreenshotProvider:   ProviderURLScan,
			IllustrationProvider: ProviderDashScope,
		},
		Temporal: TemporalConfig{HostPort: "localhost:7233", TaskQueue: "paper-media-tasks"},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "events",
		},
		Search: SearchConfig{DefaultTopN: 10, MaxResults: 20},
	}
}
