// Package config provides configuration management for the paper ranking service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Oracle providers.
const (
	ProviderDashScope = "dashscope"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Translation and media providers. ProviderNone disables the feature.
const (
	ProviderURLScan = "urlscan"
	ProviderChrome  = "chrome"
	ProviderNone    = "none"
	ProviderBaidu   = "baidu"
)

// Config holds all configuration for the paper ranking service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Tracing contains OpenTelemetry distributed tracing settings.
	Tracing TracingConfig `mapstructure:"tracing"`
	// Oracle contains the LLM used for journal impact factor lookups.
	Oracle OracleConfig `mapstructure:"oracle"`
	// Summary contains the LLM used for paper summaries.
	Summary SummaryConfig `mapstructure:"summary"`
	// PubMed contains the NCBI E-utilities client settings.
	PubMed PubMedConfig `mapstructure:"pubmed"`
	// Translate contains search term translation settings.
	Translate TranslateConfig `mapstructure:"translate"`
	// Media contains screenshot and illustration settings.
	Media MediaConfig `mapstructure:"media"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Kafka contains event publishing settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Search contains ranking defaults.
	Search SearchConfig `mapstructure:"search"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response. It covers
	// one oracle call per distinct journal.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console, pretty).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP collector endpoint.
	Endpoint string `mapstructure:"endpoint"`
	// ServiceName is the service name for traces.
	ServiceName string `mapstructure:"service_name"`
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure"`
}

// OracleConfig holds the impact factor oracle configuration.
type OracleConfig struct {
	// Provider is dashscope, openai or gemini.
	Provider string `mapstructure:"provider"`
	// APIKey is loaded from DASHSCOPE_API_KEY, OPENAI_API_KEY or
	// GEMINI_API_KEY depending on the provider.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL is the chat completions base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a single oracle call.
	Timeout time.Duration `mapstructure:"timeout"`
	// RatePerSecond is the sustained oracle call rate.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	// Burst is the number of calls allowed back to back.
	Burst int `mapstructure:"burst"`
	// Concurrency is the number of lookups in flight.
	Concurrency int `mapstructure:"concurrency"`
	// MetricName is the metric asked about (impact factor).
	MetricName string `mapstructure:"metric_name"`
	// NegativeMarker is the answer that means "unknown".
	NegativeMarker string `mapstructure:"negative_marker"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
}

// SummaryConfig holds the summarizer configuration.
type SummaryConfig struct {
	// Provider is dashscope, openai or gemini.
	Provider string `mapstructure:"provider"`
	// APIKey follows the same environment variables as OracleConfig.APIKey.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier (default: deepseek-v3).
	Model string `mapstructure:"model"`
	// BaseURL is the chat completions base URL.
	BaseURL string `mapstructure:"base_url"`
	// SystemPrompt is sent before every summary prompt.
	SystemPrompt string `mapstructure:"system_prompt"`
	// Timeout bounds a summary call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of retries on transient errors.
	MaxRetries int `mapstructure:"max_retries"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
}

// PubMedConfig holds PubMed API settings.
type PubMedConfig struct {
	// Enabled controls whether searches reach PubMed.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the optional NCBI key, loaded from PUBMED_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the E-utilities base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
}

// TranslateConfig holds search term translation settings.
type TranslateConfig struct {
	// Provider is baidu or none.
	Provider string `mapstructure:"provider"`
	// AppID is loaded from BAIDU_APP_ID.
	AppID string `mapstructure:"-"`
	// SecretKey is loaded from BAIDU_SECRET_KEY.
	SecretKey string `mapstructure:"-"`
	// BaseURL is the Baidu translation endpoint.
	BaseURL string `mapstructure:"base_url"`
	// TargetLang is the language search terms are translated to.
	TargetLang string `mapstructure:"target_lang"`
	// CacheSize is the number of cached translations.
	CacheSize int `mapstructure:"cache_size"`
	// Timeout bounds a translation call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// MediaConfig holds image generation settings.
type MediaConfig struct {
	// Dir is the directory generated images are written to.
	Dir string `mapstructure:"dir"`
	// ScreenshotProvider is urlscan, chrome or none.
	ScreenshotProvider string `mapstructure:"screenshot_provider"`
	// IllustrationProvider is dashscope or none.
	IllustrationProvider string `mapstructure:"illustration_provider"`
	// URLScan contains urlscan.io settings.
	URLScan URLScanConfig `mapstructure:"urlscan"`
	// Chrome contains local headless Chrome settings.
	Chrome ChromeConfig `mapstructure:"chrome"`
	// DashScope contains text-to-image settings.
	DashScope DashScopeImageConfig `mapstructure:"dashscope"`
	// DownloadTimeout bounds an image download.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// DownloadMaxBytes caps an image download.
	DownloadMaxBytes int64 `mapstructure:"download_max_bytes"`
}

// URLScanConfig holds urlscan.io settings.
type URLScanConfig struct {
	// APIKey is loaded from URLSCAN_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the urlscan.io base URL.
	BaseURL string `mapstructure:"base_url"`
	// Wait is the delay before the first screenshot fetch.
	Wait time.Duration `mapstructure:"wait"`
	// PollInterval is the delay between screenshot fetches.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// MaxPolls is the number of screenshot fetches before giving up.
	MaxPolls int `mapstructure:"max_polls"`
	// Visibility is the scan visibility.
	Visibility string `mapstructure:"visibility"`
	// Timeout bounds a single HTTP call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChromeConfig holds chromedp settings.
type ChromeConfig struct {
	// ExecPath overrides Chrome discovery.
	ExecPath string `mapstructure:"exec_path"`
	// Quality is the JPEG quality.
	Quality int `mapstructure:"quality"`
	// Settle is how long to wait after page load.
	Settle time.Duration `mapstructure:"settle"`
	// Timeout bounds a capture.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DashScopeImageConfig holds DashScope text-to-image settings.
type DashScopeImageConfig struct {
	// APIKey is loaded from DASHSCOPE_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the DashScope API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Model is the text-to-image model.
	Model string `mapstructure:"model"`
	// Size is the image size, "W*H".
	Size string `mapstructure:"size"`
	// PollInterval is the delay between task status checks.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// TaskTimeout bounds one generation.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// Enabled allows background image generation.
	Enabled bool `mapstructure:"enabled"`
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for media workflows.
	TaskQueue string `mapstructure:"task_queue"`
	// MaxConcurrentActivities caps activities per worker.
	MaxConcurrentActivities int `mapstructure:"max_concurrent_activities"`
	// TLS configures mutual TLS to Temporal Cloud or a secured frontend.
	TLS TemporalTLSConfig `mapstructure:"tls"`
}

// TemporalTLSConfig holds Temporal client TLS settings.
type TemporalTLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertPath   string `mapstructure:"cert_path"`
	KeyPath    string `mapstructure:"key_path"`
	CACertPath string `mapstructure:"ca_cert_path"`
	ServerName string `mapstructure:"server_name"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	// Enabled controls whether events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic search events are published to.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MediaListener starts media workflows from search.completed events.
	MediaListener MediaListenerConfig `mapstructure:"media_listener"`
}

// MediaListenerConfig holds the worker's event listener settings.
type MediaListenerConfig struct {
	// Enabled runs the listener in the worker.
	Enabled bool `mapstructure:"enabled"`
	// GroupID is the consumer group.
	GroupID string `mapstructure:"group_id"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	// DefaultTopN is the number of ranked papers returned.
	DefaultTopN int `mapstructure:"default_top_n"`
	// MaxResults is the number of PubMed hits ranked.
	MaxResults int `mapstructure:"max_results"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PAPERRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-ranking")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" and never come from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Oracle.APIKey = providerKey(cfg.Oracle.Provider)
	cfg.Summary.APIKey = providerKey(cfg.Summary.Provider)
	cfg.PubMed.APIKey = os.Getenv("PUBMED_API_KEY")
	cfg.Translate.AppID = os.Getenv("BAIDU_APP_ID")
	cfg.Translate.SecretKey = os.Getenv("BAIDU_SECRET_KEY")
	cfg.Media.URLScan.APIKey = os.Getenv("URLSCAN_API_KEY")
	cfg.Media.DashScope.APIKey = os.Getenv("DASHSCOPE_API_KEY")
}

func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("DASHSCOPE_API_KEY")
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_ranking")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "paper-ranking-service")
	v.SetDefault("tracing.sample_rate", 0.1)
	v.SetDefault("tracing.insecure", true)

	// Oracle defaults: one call per 500ms, one at a time.
	v.SetDefault("oracle.provider", ProviderDashScope)
	v.SetDefault("oracle.model", "qwen-plus")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.timeout", "30s")
	v.SetDefault("oracle.rate_per_second", 2.0)
	v.SetDefault("oracle.burst", 1)
	v.SetDefault("oracle.concurrency", 1)
	v.SetDefault("oracle.metric_name", "impact factor")
	v.SetDefault("oracle.negative_marker", "无法获取")
	v.SetDefault("oracle.temperature", 0.0)

	// Summary defaults
	v.SetDefault("summary.provider", ProviderDashScope)
	v.SetDefault("summary.model", "deepseek-v3")
	v.SetDefault("summary.base_url", "")
	v.SetDefault("summary.system_prompt", "You are a helpful assistant.")
	v.SetDefault("summary.timeout", "60s")
	v.SetDefault("summary.max_retries", 2)
	v.SetDefault("summary.temperature", 0.7)

	// PubMed defaults
	v.SetDefault("pubmed.enabled", true)
	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.timeout", "30s")
	v.SetDefault("pubmed.rate_limit", 3.0) // NCBI allows 3 req/sec without an API key
	v.SetDefault("pubmed.max_results", 20)

	// Translate defaults
	v.SetDefault("translate.provider", ProviderBaidu)
	v.SetDefault("translate.base_url", "https://fanyi-api.baidu.com/api/trans/vip/translate")
	v.SetDefault("translate.target_lang", "en")
	v.SetDefault("translate.cache_size", 1024)
	v.SetDefault("translate.timeout", "10s")

	// Media defaults
	v.SetDefault("media.dir", "dynamic_images")
	v.SetDefault("media.screenshot_provider", ProviderURLScan)
	v.SetDefault("media.illustration_provider", ProviderDashScope)
	v.SetDefault("media.urlscan.base_url", "https://urlscan.io")
	v.SetDefault("media.urlscan.wait", "15s")
	v.SetDefault("media.urlscan.poll_interval", "5s")
	v.SetDefault("media.urlscan.max_polls", 6)
	v.SetDefault("media.urlscan.visibility", "public")
	v.SetDefault("media.urlscan.timeout", "30s")
	v.SetDefault("media.chrome.exec_path", "")
	v.SetDefault("media.chrome.quality", 90)
	v.SetDefault("media.chrome.settle", "2s")
	v.SetDefault("media.chrome.timeout", "60s")
	v.SetDefault("media.dashscope.base_url", "https://dashscope.aliyuncs.com/api/v1")
	v.SetDefault("media.dashscope.model", "wan2.2-t2i-flash")
	v.SetDefault("media.dashscope.size", "1440*1080")
	v.SetDefault("media.dashscope.poll_interval", "3s")
	v.SetDefault("media.dashscope.task_timeout", "3m")
	v.SetDefault("media.download_timeout", "60s")
	v.SetDefault("media.download_max_bytes", 20<<20)

	// Temporal defaults
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "paper-ranking")
	v.SetDefault("temporal.task_queue", "paper-media-tasks")
	v.SetDefault("temporal.max_concurrent_activities", 4)
	v.SetDefault("temporal.tls.enabled", false)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_ranking_service")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("kafka.media_listener.enabled", false)
	v.SetDefault("kafka.media_listener.group_id", "paper-ranking-media")

	// Search defaults
	v.SetDefault("search.default_top_n", 10)
	v.SetDefault("search.max_results", 20)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1")
	}

	if err := validateProvider("oracle", c.Oracle.Provider); err != nil {
		return err
	}
	if err := validateProvider("summary", c.Summary.Provider); err != nil {
		return err
	}
	if c.Oracle.RatePerSecond <= 0 {
		return fmt.Errorf("oracle rate_per_second must be positive")
	}
	if c.Oracle.Burst <= 0 {
		return fmt.Errorf("oracle burst must be positive")
	}
	if c.Oracle.Concurrency <= 0 {
		return fmt.Errorf("oracle concurrency must be positive")
	}

	switch strings.ToLower(c.Translate.Provider) {
	case ProviderBaidu, ProviderNone:
	default:
		return fmt.Errorf("unknown translate provider: %s", c.Translate.Provider)
	}

	switch strings.ToLower(c.Media.ScreenshotProvider) {
	case ProviderURLScan, ProviderChrome, ProviderNone:
	default:
		return fmt.Errorf("unknown screenshot provider: %s", c.Media.ScreenshotProvider)
	}
	switch strings.ToLower(c.Media.IllustrationProvider) {
	case ProviderDashScope, ProviderNone:
	default:
		return fmt.Errorf("unknown illustration provider: %s", c.Media.IllustrationProvider)
	}

	if c.Search.DefaultTopN <= 0 {
		return fmt.Errorf("search default_top_n must be positive")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search max_results must be positive")
	}

	if c.Temporal.Enabled && (c.Temporal.HostPort == "" || c.Temporal.TaskQueue == "") {
		return fmt.Errorf("temporal host_port and task_queue are required when temporal is enabled")
	}
	if c.Kafka.Enabled || c.Kafka.MediaListener.Enabled {
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
		}
	}
	if c.Kafka.MediaListener.Enabled && c.Kafka.MediaListener.GroupID == "" {
		return fmt.Errorf("kafka media_listener group_id is required")
	}

	return nil
}

func validateProvider(section, provider string) error {
	switch strings.ToLower(provider) {
	case ProviderDashScope, ProviderOpenAI, ProviderGemini:
		return nil
	default:
		return fmt.Errorf("unknown %s provider: %s", section, provider)
	}
}

// MissingKeys lists the credentials the enabled providers need but lack.
// Missing keys do not fail Load: the affected feature degrades at runtime.
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.Oracle.APIKey == "" {
		missing = append(missing, "oracle api key ("+c.Oracle.Provider+")")
	}
	if c.Summary.APIKey == "" {
		missing = append(missing, "summary api key ("+c.Summary.Provider+")")
	}
	if strings.EqualFold(c.Translate.Provider, ProviderBaidu) && (c.Translate.AppID == "" || c.Translate.SecretKey == "") {
		missing = append(missing, "BAIDU_APP_ID/BAIDU_SECRET_KEY")
	}
	if strings.EqualFold(c.Media.ScreenshotProvider, ProviderURLScan) && c.Media.URLScan.APIKey == "" {
		missing = append(missing, "URLSCAN_API_KEY")
	}
	if strings.EqualFold(c.Media.IllustrationProvider, ProviderDashScope) && c.Media.DashScope.APIKey == "" {
		missing = append(missing, "DASHSCOPE_API_KEY")
	}
	return missing
}
