package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/media"
	"github.com/helixir/paper-ranking-service/internal/search"
	"github.com/helixir/paper-ranking-service/internal/summary"
	"github.com/helixir/paper-ranking-service/internal/temporal"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeSearcher struct {
	got  search.Query
	resp *search.Response
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) (*search.Response, error) {
	f.got = q
	return f.resp, f.err
}

type fakeSummarizer struct {
	text string
	err  error
	got  summary.Input
}

func (f *fakeSummarizer) Summarize(_ context.Context, in summary.Input) (string, error) {
	f.got = in
	return f.text, f.err
}

type fakeMedia struct {
	res media.Result
	err error
	got media.Request
}

func (f *fakeMedia) Generate(_ context.Context, req media.Request) (media.Result, error) {
	f.got = req
	return f.res, f.err
}

type fakeWorkflows struct {
	started  temporal.MediaWorkflowInput
	startErr error
	progress *temporal.MediaProgress
	queryErr error
}

func (f *fakeWorkflows) StartMediaWorkflow(_ context.Context, _ interface{}, input temporal.MediaWorkflowInput) (string, string, error) {
	f.started = input
	if f.startErr != nil {
		return "", "", f.startErr
	}
	return "media-req-1", "run-1", nil
}

func (f *fakeWorkflows) QueryProgress(_ context.Context, _ string) (*temporal.MediaProgress, error) {
	return f.progress, f.queryErr
}

func (f *fakeWorkflows) Health(context.Context) error { return nil }

func newTestServer(deps Deps) *Server {
	return NewServer(Config{Address: ":0"}, deps, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

const paperBody = `{"paper_id": 3, "paper_data": {"title": "CRISPR screens", "url": "https://pubmed.ncbi.nlm.nih.gov/32594390/", "abstract": "We screen."}}`

// ---------------------------------------------------------------------------
// /api/search
// ---------------------------------------------------------------------------

func TestSearchPapers_Success(t *testing.T) {
	searcher := &fakeSearcher{resp: &search.Response{
		Query: `("cancer"[Title]`,
		Papers: []search.Result{
			{ID: 0, Title: "A", Journal: "Nature", ImpactFactor: "48.50"},
			{ID: 1, Title: "B", Journal: "Unknown", ImpactFactor: "N/A"},
		},
	}}
	s := newTestServer(Deps{Search: searcher})

	rr := do(t, s, http.MethodPost, "/api/search", `{"theme":"cancer","key1":"","key2":"","start_year":"2020","end_year":2024}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, search.Query{Theme: "cancer", YearFrom: 2020, YearTo: 2024}, searcher.got)

	out := decode(t, rr)
	assert.Equal(t, "success", out["status"])
	papers := out["papers"].([]interface{})
	require.Len(t, papers, 2)
	assert.Equal(t, "48.50", papers[0].(map[string]interface{})["impact_factor"])
	assert.Equal(t, "N/A", papers[1].(map[string]interface{})["impact_factor"])
}

func TestSearchPapers_NoResults(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{resp: &search.Response{Papers: []search.Result{}}}})

	rr := do(t, s, http.MethodPost, "/api/search", `{"theme":"nothing"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, search.NoResultsMessage, decode(t, rr)["result"])
}

func TestSearchPapers_InvalidBody(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}})

	for name, body := range map[string]string{
		"empty":      "",
		"not json":   "{theme",
		"bad year":   `{"theme":"x","start_year":"twenty"}`,
		"top_n high": `{"theme":"x","top_n":1000}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/search", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, msgInvalidBody, decode(t, rr)["result"])
		})
	}
}

func TestSearchPapers_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		result string
	}{
		{"validation", domain.NewValidationError("theme", "at least one of theme, key1 or key2 is required"), http.StatusBadRequest, msgSearchFailed + "at least one of theme, key1 or key2 is required"},
		{"upstream", errors.New("pubmed: connection refused on 10.0.0.3"), http.StatusInternalServerError, msgSearchFailed + "internal server error"},
		{"rate limited", domain.NewUpstreamError("pubmed", http.StatusTooManyRequests, ""), http.StatusTooManyRequests, msgSearchFailed + "rate limited"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(Deps{Search: &fakeSearcher{err: tc.err}})
			rr := do(t, s, http.MethodPost, "/api/search", `{"theme":"x"}`)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.result, decode(t, rr)["result"])
			assert.NotContains(t, rr.Body.String(), "10.0.0.3")
		})
	}
}

// ---------------------------------------------------------------------------
// /api/get_paper_summary
// ---------------------------------------------------------------------------

func TestGetPaperSummary(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		summary string
	}{
		{"ok", nil, "A concise summary."},
		{"nothing to summarize", domain.NewValidationError("paper_data", "title or abstract is required"), summary.Unavailable},
		{"oracle failure", errors.New("timeout"), summary.Failed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sum := &fakeSummarizer{text: "A concise summary.", err: tc.err}
			s := newTestServer(Deps{Search: &fakeSearcher{}, Summaries: sum})

			rr := do(t, s, http.MethodPost, "/api/get_paper_summary", paperBody)
			require.Equal(t, http.StatusOK, rr.Code)
			out := decode(t, rr)
			assert.Equal(t, tc.summary, out["summary"])
			assert.Equal(t, "completed", out["status"])
			assert.Equal(t, "CRISPR screens", sum.got.Title)
		})
	}
}

func TestGetPaperSummary_MissingPaper(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}, Summaries: &fakeSummarizer{}})

	for name, body := range map[string]string{
		"no paper_data": `{"paper_id": 1}`,
		"no paper_id":   `{"paper_data": {"title": "x"}}`,
		"empty data":    `{"paper_id": 1, "paper_data": {}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/get_paper_summary", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, msgMissingPaper, decode(t, rr)["error"])
		})
	}

	rr := do(t, s, http.MethodPost, "/api/get_paper_summary", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidBody, decode(t, rr)["error"])
}

func TestGetPaperSummary_NotConfigured(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}})
	rr := do(t, s, http.MethodPost, "/api/get_paper_summary", paperBody)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// ---------------------------------------------------------------------------
// /api/generate_images
// ---------------------------------------------------------------------------

func TestGenerateImages_Sync(t *testing.T) {
	gen := &fakeMedia{res: media.Result{
		Key:          "32594390",
		Screenshot:   media.Item{Kind: media.KindScreenshot, Status: media.StatusGenerated, Path: "dynamic_images/screenshot_32594390.jpg"},
		Illustration: media.Item{Kind: media.KindIllustration, Status: media.StatusFailed, Error: "task failed"},
	}}
	s := newTestServer(Deps{Search: &fakeSearcher{}, Media: gen})

	rr := do(t, s, http.MethodPost, "/api/generate_images", paperBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	out := decode(t, rr)
	assert.Equal(t, "completed", out["status"])
	assert.Equal(t, "主页截图链接:dynamic_images/screenshot_32594390.jpg\n\nAI插图链接:暂无", out["result"])
	assert.Equal(t, "3", gen.got.PaperID)
}

func TestGenerateImages_SyncError(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}, Media: &fakeMedia{err: context.Canceled}})
	rr := do(t, s, http.MethodPost, "/api/generate_images", paperBody)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, strings.HasPrefix(decode(t, rr)["error"].(string), msgImagesFailed))
}

func TestGenerateImages_Async(t *testing.T) {
	store, err := media.NewStore(t.TempDir())
	require.NoError(t, err)
	wf := &fakeWorkflows{}
	s := newTestServer(Deps{Search: &fakeSearcher{}, Store: store, Workflows: wf, WorkflowFunc: "MediaWorkflow"})

	body := strings.Replace(paperBody, `"paper_id": 3`, `"paper_id": "3", "async": true`, 1)
	rr := do(t, s, http.MethodPost, "/api/generate_images", body)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	out := decode(t, rr)
	assert.Equal(t, "media-req-1", out["workflow_id"])
	assert.Equal(t, "accepted", out["status"])
	require.Len(t, wf.started.Papers, 1)
	assert.Equal(t, "32594390", wf.started.Papers[0].Key)
}

func TestGenerateImages_AsyncDisabled(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}, Media: &fakeMedia{}})
	body := strings.Replace(paperBody, `"paper_id": 3`, `"paper_id": 3, "async": true`, 1)
	rr := do(t, s, http.MethodPost, "/api/generate_images", body)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, msgNoWorkflows, decode(t, rr)["error"])
}

func TestGetImageProgress(t *testing.T) {
	wf := &fakeWorkflows{progress: &temporal.MediaProgress{
		Total:     1,
		Completed: 1,
		Results: []media.Result{{
			Screenshot:   media.Item{Status: media.StatusReused, Path: "dynamic_images/screenshot_1.jpg"},
			Illustration: media.Item{Status: media.StatusSkipped},
		}},
	}}
	s := newTestServer(Deps{Search: &fakeSearcher{}, Workflows: wf})

	rr := do(t, s, http.MethodGet, "/api/generate_images/media-req-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, "completed", out["status"])
	assert.Equal(t, "主页截图链接:dynamic_images/screenshot_1.jpg\n\nAI插图链接:暂无", out["result"])

	rr = do(t, s, http.MethodGet, "/api/generate_images/review-1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	wf.queryErr = &temporal.TemporalError{Op: "QueryProgress", Kind: temporal.ErrWorkflowNotFound}
	rr = do(t, s, http.MethodGet, "/api/generate_images/media-missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStreamImageProgress_AlreadyDone(t *testing.T) {
	wf := &fakeWorkflows{progress: &temporal.MediaProgress{Total: 2, Completed: 2}}
	s := newTestServer(Deps{Search: &fakeSearcher{}, Workflows: wf})

	rr := do(t, s, http.MethodGet, "/api/generate_images/media-req-1/stream", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: completed\ndata: "), body)
	assert.Contains(t, body, `"workflow_id":"media-req-1"`)
	assert.Equal(t, 1, strings.Count(body, "event: "))
}

// ---------------------------------------------------------------------------
// /dynamic_images
// ---------------------------------------------------------------------------

func TestServeDynamicImage(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Ai_1.jpg"), []byte("\xff\xd8\xffjpeg"), 0o644))
	s := newTestServer(Deps{Search: &fakeSearcher{}, Store: store})

	rr := do(t, s, http.MethodGet, "/dynamic_images/Ai_1.jpg", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "\xff\xd8\xffjpeg", rr.Body.String())

	rr = do(t, s, http.MethodGet, "/dynamic_images/missing.jpg", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), msgImageNotFound)

	rr = do(t, s, http.MethodGet, "/dynamic_images/..%5Csecret", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), msgInvalidName)
}

// ---------------------------------------------------------------------------
// Health and middleware
// ---------------------------------------------------------------------------

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}, Workflows: &fakeWorkflows{}})

	rr := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decode(t, rr)["temporal"])
}

func TestCorrelationIDMiddleware(t *testing.T) {
	s := newTestServer(Deps{Search: &fakeSearcher{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "test-correlation-123", rr.Header().Get("X-Correlation-ID"))

	rr = do(t, s, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestWriteDomainError_NeverLeaksInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDomainError(rr, errors.New("dial tcp 10.1.2.3:5432: secret-token"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-token")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"image missing", domain.NewNotFoundError("image", "x.jpg"), http.StatusNotFound},
		{"workflow missing", temporal.ErrWorkflowNotFound, http.StatusNotFound},
		{"upstream 429", domain.NewUpstreamError("oracle", 429, ""), http.StatusTooManyRequests},
		{"upstream 401", domain.NewUpstreamError("urlscan", 401, ""), http.StatusBadGateway},
		{"upstream 503", domain.NewUpstreamError("pubmed", 503, ""), http.StatusServiceUnavailable},
		{"upstream 400", domain.NewUpstreamError("pubmed", 400, ""), http.StatusInternalServerError},
		{"not configured", domain.ErrNotConfigured, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := statusForError(tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}
