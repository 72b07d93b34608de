package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper ranking service.
// Metrics are organized by subsystem: searches, oracle lookups, paper sources,
// LLM calls, translation, media generation, events and HTTP. All counters and
// histograms are registered via promauto with the default Prometheus registry.
type Metrics struct {
	// SearchesTotal counts searches by final status (success, empty, failed).
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes end-to-end search duration in seconds.
	SearchDuration prometheus.Histogram

	// SearchCandidates observes how many papers the literature database returned per search.
	SearchCandidates prometheus.Histogram

	// OracleLookupsTotal counts group metric lookups by outcome (value, unknown, transport_error).
	OracleLookupsTotal *prometheus.CounterVec

	// OracleLookupDuration observes the duration of a single group lookup, including rate limiting.
	OracleLookupDuration prometheus.Histogram

	// RankedRecords observes the number of records returned by a top-K ranking.
	RankedRecords prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// LLMRequestsTotal counts LLM requests by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM requests by operation, model and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM request duration in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// TranslationsTotal counts translation requests by result (translated, skipped, cached, failed).
	TranslationsTotal *prometheus.CounterVec

	// MediaGenerationsTotal counts screenshot and illustration jobs by kind and status.
	MediaGenerationsTotal *prometheus.CounterVec

	// MediaDuration observes media generation duration in seconds by kind.
	MediaDuration *prometheus.HistogramVec

	// EventsPublishedTotal counts published domain events by type and status.
	EventsPublishedTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of paper searches by status",
		}, []string{"status"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of paper searches including ranking in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		SearchCandidates: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Number of candidate papers returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
		}),

		// Ranking
		OracleLookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_lookups_total",
			Help:      "Total number of group metric lookups by outcome",
		}, []string{"outcome"}),
		OracleLookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_lookup_duration_seconds",
			Help:      "Duration of a single group metric lookup in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		RankedRecords: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranked_records",
			Help:      "Number of records returned per ranking",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to paper sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to paper sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),

		// Translation
		TranslationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Total number of translation requests by result",
		}, []string{"result"}),

		// Media
		MediaGenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_generations_total",
			Help:      "Total number of media generation jobs by kind and status",
		}, []string{"kind", "status"}),
		MediaDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_duration_seconds",
			Help:      "Duration of media generation jobs in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 120},
		}, []string{"kind"}),

		// Events
		EventsPublishedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events published by type and status",
		}, []string{"event_type", "status"}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordSearch records a finished search.
func (m *Metrics) RecordSearch(status string, candidates int, durationSeconds float64) {
	m.SearchesTotal.WithLabelValues(status).Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.SearchCandidates.Observe(float64(candidates))
}

// RecordOracleLookup records a group metric lookup outcome.
func (m *Metrics) RecordOracleLookup(outcome string, durationSeconds float64) {
	m.OracleLookupsTotal.WithLabelValues(outcome).Inc()
	m.OracleLookupDuration.Observe(durationSeconds)
}

// RecordRankedRecords records the size of a ranking result.
func (m *Metrics) RecordRankedRecords(count int) {
	m.RankedRecords.Observe(float64(count))
}

// RecordSourceRequest records a successful request to a paper source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a paper source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordLLMRequest records a successful LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

// RecordTranslation records a translation request result.
func (m *Metrics) RecordTranslation(result string) {
	m.TranslationsTotal.WithLabelValues(result).Inc()
}

// RecordMedia records a finished media generation job.
func (m *Metrics) RecordMedia(kind, status string, durationSeconds float64) {
	m.MediaGenerationsTotal.WithLabelValues(kind, status).Inc()
	m.MediaDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordEventPublished records a publish attempt of a domain event.
func (m *Metrics) RecordEventPublished(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
