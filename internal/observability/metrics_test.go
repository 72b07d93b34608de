package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_paper_ranking_new")

	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.SearchCandidates)
	assert.NotNil(t, m.OracleLookupsTotal)
	assert.NotNil(t, m.OracleLookupDuration)
	assert.NotNil(t, m.RankedRecords)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.TranslationsTotal)
	assert.NotNil(t, m.MediaGenerationsTotal)
	assert.NotNil(t, m.EventsPublishedTotal)
	assert.NotNil(t, m.HTTPRequestsTotal)
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics("test_record_search")

	m.RecordSearch("success", 42, 3.2)
	m.RecordSearch("empty", 0, 0.4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("empty")))

	histCount, err := getHistogramSampleCount(m.SearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), histCount)
}

func TestRecordOracleLookup(t *testing.T) {
	m := NewMetrics("test_record_oracle_lookup")

	m.RecordOracleLookup("value", 0.6)
	m.RecordOracleLookup("value", 0.5)
	m.RecordOracleLookup("transport_error", 30)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OracleLookupsTotal.WithLabelValues("value")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleLookupsTotal.WithLabelValues("transport_error")))

	histCount, err := getHistogramSampleCount(m.OracleLookupDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), histCount)
}

func TestRecordSourceRequests(t *testing.T) {
	m := NewMetrics("test_record_source_requests")

	m.RecordSourceRequest("pubmed", "esearch", 0.2)
	m.RecordSourceRequestFailed("pubmed", "efetch", "http_503")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("pubmed", "esearch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("pubmed", "efetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("pubmed", "efetch", "http_503")))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics("test_record_llm_request")

	m.RecordLLMRequest("summary", "qwen-plus", 2.1)
	m.RecordLLMRequestFailed("summary", "qwen-plus", "rate_limit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("summary", "qwen-plus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("summary", "qwen-plus", "rate_limit")))
}

func TestRecordMediaAndEvents(t *testing.T) {
	m := NewMetrics("test_record_media_events")

	m.RecordMedia("screenshot", "success", 16)
	m.RecordMedia("illustration", "reused", 0)
	m.RecordEventPublished("search.completed", nil)
	m.RecordEventPublished("search.completed", errors.New("broker down"))
	m.RecordTranslation("cached")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MediaGenerationsTotal.WithLabelValues("screenshot", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MediaGenerationsTotal.WithLabelValues("illustration", "reused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublishedTotal.WithLabelValues("search.completed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublishedTotal.WithLabelValues("search.completed", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranslationsTotal.WithLabelValues("cached")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics("test_record_http_request")

	m.RecordHTTPRequest("POST", "/api/search", 200, 1.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/search", "200")))
}

// getHistogramSampleCount extracts the sample count from a histogram.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
