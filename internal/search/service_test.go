package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/observability"
	"github.com/helixir/paper-ranking-service/internal/papersources"
	"github.com/helixir/paper-ranking-service/internal/ranking"
)

type stubSource struct {
	papers []*domain.Paper
	err    error
	params papersources.SearchParams
}

func (s *stubSource) Search(_ context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &papersources.SearchResult{Papers: s.papers, Source: "pubmed"}, nil
}

type dictTranslator struct{}

func (dictTranslator) ToTarget(_ context.Context, text string) string {
	switch strings.TrimSpace(text) {
	case "脓毒症":
		return "sepsis"
	case "乳酸":
		return "lactate"
	}
	return strings.TrimSpace(text)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func journalLookup(values map[string]float64) ranking.Lookup {
	return ranking.LookupFunc(func(_ context.Context, group string) ranking.LookupResult {
		if v, ok := values[group]; ok {
			return ranking.Value(v)
		}
		return ranking.Unknown("无法获取")
	})
}

func samplePapers() []*domain.Paper {
	return []*domain.Paper{
		{PMID: "1", Title: "Low impact", Journal: "Small J", Year: 2021, URL: "https://pubmed.ncbi.nlm.nih.gov/1/", Abstract: "a"},
		{PMID: "2", Title: "No journal metric", Journal: "Obscure", Year: 2022, URL: "https://pubmed.ncbi.nlm.nih.gov/2/"},
		{PMID: "3", Title: "High impact", Journal: "The Lancet", Year: 2023, URL: "https://pubmed.ncbi.nlm.nih.gov/3/", Authors: []domain.Author{{Name: "Jane Doe"}}},
	}
}

func TestService_Search(t *testing.T) {
	t.Run("ranks and formats the top papers", func(t *testing.T) {
		src := &stubSource{papers: samplePapers()}
		pub := &recordingPublisher{}
		svc := NewService(src, dictTranslator{}, journalLookup(map[string]float64{"The Lancet": 98.4, "Small J": 2.134}), pub, Config{}, zerolog.Nop(), observability.NewMetrics("test_search_ok"))

		ctx := observability.WithRequestID(context.Background(), "req-9")
		resp, err := svc.Search(ctx, Query{Theme: "脓毒症", Key1: "乳酸", YearFrom: 2020, YearTo: 2024})
		require.NoError(t, err)

		assert.Equal(t, `("sepsis"[Title] AND "lactate"[Title/Abstract])`, resp.Query)
		assert.Equal(t, resp.Query, src.params.Query)
		assert.Equal(t, 2020, src.params.YearFrom)
		assert.Equal(t, 2024, src.params.YearTo)
		assert.Equal(t, DefaultMaxResults, src.params.MaxResults)

		want := []Result{
			{ID: 0, PMID: "3", Title: "High impact", Journal: "The Lancet", PubDate: "2023", URL: "https://pubmed.ncbi.nlm.nih.gov/3/", Abstract: "", Authors: "Jane Doe", ImpactFactor: "98.40"},
			{ID: 1, PMID: "1", Title: "Low impact", Journal: "Small J", PubDate: "2021", URL: "https://pubmed.ncbi.nlm.nih.gov/1/", Abstract: "a", ImpactFactor: "2.13"},
			{ID: 2, PMID: "2", Title: "No journal metric", Journal: "Obscure", PubDate: "2022", URL: "https://pubmed.ncbi.nlm.nih.gov/2/", ImpactFactor: "N/A"},
		}
		if diff := cmp.Diff(want, resp.Papers); diff != "" {
			t.Errorf("ranked papers mismatch (-want +got):\n%s", diff)
		}

		require.Len(t, pub.events, 1)
		ev := pub.events[0]
		assert.Equal(t, domain.EventTypeSearchCompleted, ev.EventType)
		assert.Equal(t, "req-9", ev.CorrelationID)

		var payload domain.SearchCompletedPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		assert.Equal(t, 3, payload.Candidates)
		assert.Equal(t, 3, payload.Returned)
		assert.Equal(t, 1, payload.UnknownRank)
		require.Len(t, payload.Papers, 3)
		assert.Equal(t, "3", payload.Papers[0].PMID)
	})

	t.Run("top n limits the result", func(t *testing.T) {
		svc := NewService(&stubSource{papers: samplePapers()}, nil, journalLookup(map[string]float64{"The Lancet": 98.4}), nil, Config{DefaultTopN: 1}, zerolog.Nop(), nil)

		resp, err := svc.Search(context.Background(), Query{Theme: "sepsis"})
		require.NoError(t, err)
		require.Len(t, resp.Papers, 1)
		assert.Equal(t, "The Lancet", resp.Papers[0].Journal)

		resp, err = svc.Search(context.Background(), Query{Theme: "sepsis", TopN: 2})
		require.NoError(t, err)
		assert.Len(t, resp.Papers, 2)
	})

	t.Run("no hits is an empty list", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc := NewService(&stubSource{}, nil, journalLookup(nil), pub, Config{}, zerolog.Nop(), nil)

		resp, err := svc.Search(context.Background(), Query{Key2: "Nature"})
		require.NoError(t, err)
		assert.NotNil(t, resp.Papers)
		assert.Empty(t, resp.Papers)
		assert.Equal(t, 0, resp.Candidates)
		require.Len(t, pub.events, 1)
	})

	t.Run("source failure publishes search.failed", func(t *testing.T) {
		pub := &recordingPublisher{}
		src := &stubSource{err: domain.NewUpstreamError("pubmed", 502, "bad gateway")}
		svc := NewService(src, nil, journalLookup(nil), pub, Config{}, zerolog.Nop(), nil)

		_, err := svc.Search(context.Background(), Query{Theme: "sepsis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad gateway")

		require.Len(t, pub.events, 1)
		assert.Equal(t, domain.EventTypeSearchFailed, pub.events[0].EventType)
	})

	t.Run("publisher failure does not fail the search", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("kafka down")}
		svc := NewService(&stubSource{papers: samplePapers()}, nil, journalLookup(nil), pub, Config{}, zerolog.Nop(), nil)

		resp, err := svc.Search(context.Background(), Query{Theme: "sepsis"})
		require.NoError(t, err)
		assert.Len(t, resp.Papers, 3)
	})

	t.Run("invalid query", func(t *testing.T) {
		src := &stubSource{}
		svc := NewService(src, nil, journalLookup(nil), nil, Config{}, zerolog.Nop(), nil)

		_, err := svc.Search(context.Background(), Query{Theme: "  "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, src.params.Query)
	})

	t.Run("cancelled before ranking", func(t *testing.T) {
		svc := NewService(&stubSource{papers: samplePapers()}, nil, journalLookup(nil), nil, Config{}, zerolog.Nop(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Search(ctx, Query{Theme: "sepsis"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		ok    bool
	}{
		{name: "theme only", query: Query{Theme: "x"}, ok: true},
		{name: "journal only", query: Query{Key2: "Cell"}, ok: true},
		{name: "years in order", query: Query{Theme: "x", YearFrom: 2020, YearTo: 2020}, ok: true},
		{name: "open ended", query: Query{Theme: "x", YearFrom: 2020}, ok: true},
		{name: "no terms", query: Query{YearFrom: 2020}},
		{name: "years reversed", query: Query{Theme: "x", YearFrom: 2024, YearTo: 2020}},
		{name: "negative year", query: Query{Theme: "x", YearTo: -1}},
		{name: "negative top n", query: Query{Theme: "x", TopN: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	t.Run("long title is cut at 100 runes", func(t *testing.T) {
		title := strings.Repeat("脓", 120)
		r := FormatResult(4, domain.NewMapRecord("title", title, "impact_factor", 3.14159))

		assert.Equal(t, 4, r.ID)
		assert.Equal(t, strings.Repeat("脓", 100)+"...", r.Title)
		assert.Equal(t, "3.14", r.ImpactFactor)
	})

	t.Run("exactly 100 runes is kept", func(t *testing.T) {
		title := strings.Repeat("a", 100)
		assert.Equal(t, title, FormatResult(0, domain.NewMapRecord("title", title)).Title)
	})

	t.Run("missing fields get placeholders", func(t *testing.T) {
		r := FormatResult(0, domain.NewMapRecord("journal", "nan", "title", ""))

		assert.Equal(t, NoTitle, r.Title)
		assert.Equal(t, NoJournal, r.Journal)
		assert.Equal(t, NoDate, r.PubDate)
		assert.Equal(t, NoURL, r.URL)
		assert.Equal(t, "N/A", r.ImpactFactor)
	})
}
