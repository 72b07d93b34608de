// Package search runs a literature search end to end: translate the terms,
// query PubMed, rank the hits by journal impact factor and format the top
// results for the API.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/events"
	"github.com/helixir/paper-ranking-service/internal/observability"
	"github.com/helixir/paper-ranking-service/internal/papersources"
	"github.com/helixir/paper-ranking-service/internal/papersources/pubmed"
	"github.com/helixir/paper-ranking-service/internal/ranking"
)

// Defaults applied to zero Config fields.
const (
	DefaultTopN       = 10
	DefaultMaxResults = 20
	EventSource       = "paper-ranking-service"
	titleLimit        = 100
)

// Placeholders for missing paper fields.
const (
	NoTitle   = "无标题"
	NoJournal = "无期刊信息"
	NoDate    = "无日期"
	NoURL     = "#"
)

// NoResultsMessage is returned in place of an empty result list.
const NoResultsMessage = "(｡•́︿•̀｡) 抱歉\n未找到相关文献，请重新选择检索标准"

// Source searches a literature database.
type Source interface {
	Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error)
}

// Translator turns a search term into English.
type Translator interface {
	ToTarget(ctx context.Context, text string) string
}

// Query is a search request.
type Query struct {
	Theme    string `json:"theme"`
	Key1     string `json:"key1"`
	Key2     string `json:"key2"`
	YearFrom int    `json:"start_year"`
	YearTo   int    `json:"end_year"`
	// TopN caps the number of ranked results. Zero uses the default.
	TopN int `json:"top_n"`
}

// Result is one formatted, ranked paper.
type Result struct {
	ID           int    `json:"id"`
	PMID         string `json:"pmid,omitempty"`
	Title        string `json:"title"`
	Journal      string `json:"journal"`
	PubDate      string `json:"pub_date"`
	URL          string `json:"url"`
	Abstract     string `json:"abstract"`
	Authors      string `json:"authors,omitempty"`
	ImpactFactor string `json:"impact_factor"`
}

// Response is the outcome of a search.
type Response struct {
	// Query is the PubMed query that was run.
	Query      string   `json:"query"`
	Candidates int      `json:"candidates"`
	Papers     []Result `json:"papers"`
}

// Config configures the service.
type Config struct {
	DefaultTopN int
	MaxResults  int
	// Concurrency is the number of impact factor lookups in flight.
	Concurrency int
}

// Service runs searches.
type Service struct {
	source     Source
	translator Translator
	lookup     ranking.Lookup
	publisher  events.Publisher
	cfg        Config
	logger     zerolog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

// NewService creates a search service. translator, publisher and metrics
// may be nil.
func NewService(source Source, translator Translator, lookup ranking.Lookup, publisher events.Publisher, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = DefaultTopN
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		source:     source,
		translator: translator,
		lookup:     lookup,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.With().Str("component", "search").Logger(),
		metrics:    metrics,
		tracer:     otel.Tracer("github.com/helixir/paper-ranking-service/internal/search"),
	}
}

// Validate checks a query before it is run.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Theme) == "" && strings.TrimSpace(q.Key1) == "" && strings.TrimSpace(q.Key2) == "" {
		return domain.NewValidationError("theme", "at least one of theme, key1 or key2 is required")
	}
	if q.YearFrom < 0 || q.YearTo < 0 {
		return domain.NewValidationError("start_year", "years must not be negative")
	}
	if q.YearFrom > 0 && q.YearTo > 0 && q.YearFrom > q.YearTo {
		return domain.NewValidationError("start_year", "start_year is after end_year")
	}
	if q.TopN < 0 {
		return domain.NewValidationError("top_n", "must not be negative")
	}
	return nil
}

// Search translates the terms, queries the source and returns the top
// ranked papers. A search without hits returns an empty Papers slice.
func (s *Service) Search(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "search.Search")
	defer span.End()

	if err := q.Validate(); err != nil {
		s.recordSearch("invalid", 0, start)
		return nil, err
	}

	query := pubmed.BuildQuery(s.translate(ctx, q.Theme), s.translate(ctx, q.Key1), s.translate(ctx, q.Key2))
	span.SetAttributes(attribute.String("search.query", query))
	logger := observability.LoggerFromContext(ctx, s.logger).With().Str("query", query).Logger()
	logger.Info().Int("year_from", q.YearFrom).Int("year_to", q.YearTo).Msg("search started")

	found, err := s.source.Search(ctx, papersources.SearchParams{
		Query:      query,
		YearFrom:   q.YearFrom,
		YearTo:     q.YearTo,
		MaxResults: s.cfg.MaxResults,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.recordSearch("error", 0, start)
		s.publish(ctx, domain.EventTypeSearchFailed, domain.SearchFailedPayload{Query: query, Error: err.Error()})
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	resp := &Response{Query: query, Candidates: len(found.Papers), Papers: []Result{}}
	span.SetAttributes(attribute.Int("search.candidates", resp.Candidates))
	if len(found.Papers) == 0 {
		logger.Info().Msg("no papers found")
		s.recordSearch("empty", 0, start)
		s.publishCompleted(ctx, q, resp, 0, start)
		return resp, nil
	}

	ranker, err := ranking.NewMetricRanker(found.Papers, domain.FieldJournal, s.lookup,
		ranking.WithMetricField(domain.FieldImpactFactor),
		ranking.WithConcurrency(s.cfg.Concurrency),
		ranking.WithLogger(logger),
		ranking.WithMetrics(s.metrics),
	)
	if err != nil {
		s.recordSearch("error", resp.Candidates, start)
		return nil, fmt.Errorf("build ranker: %w", err)
	}

	topN := q.TopN
	if topN == 0 {
		topN = s.cfg.DefaultTopN
	}
	top, err := ranker.TopRanked(ctx, topN)
	if err != nil {
		span.RecordError(err)
		s.recordSearch("cancelled", resp.Candidates, start)
		return nil, err
	}

	unknown := 0
	for i, rec := range top {
		r := FormatResult(i, rec)
		if r.ImpactFactor == "N/A" {
			unknown++
		}
		resp.Papers = append(resp.Papers, r)
	}

	logger.Info().
		Int("candidates", resp.Candidates).
		Int("returned", len(resp.Papers)).
		Int("unknown_metric", unknown).
		Dur("elapsed", time.Since(start)).
		Msg("search completed")
	s.recordSearch("success", resp.Candidates, start)
	s.publishCompleted(ctx, q, resp, unknown, start)
	return resp, nil
}

func (s *Service) translate(ctx context.Context, term string) string {
	if s.translator == nil {
		return strings.TrimSpace(term)
	}
	return s.translator.ToTarget(ctx, term)
}

// FormatResult renders a ranked record for the API. Titles longer than 100
// characters are cut and suffixed with "...".
func FormatResult(id int, rec domain.Record) Result {
	r := Result{
		ID:           id,
		Title:        fieldString(rec, domain.FieldTitle, NoTitle),
		Journal:      fieldString(rec, domain.FieldJournal, NoJournal),
		PubDate:      fieldString(rec, domain.FieldYear, NoDate),
		URL:          fieldString(rec, domain.FieldURL, NoURL),
		Abstract:     fieldString(rec, domain.FieldAbstract, ""),
		PMID:         fieldString(rec, domain.FieldPMID, ""),
		Authors:      fieldString(rec, domain.FieldAuthors, ""),
		ImpactFactor: "N/A",
	}
	if v, ok := rec.Field(domain.FieldImpactFactor); ok {
		r.ImpactFactor = ranking.FormatMetric(v)
	}
	if utf8.RuneCountInString(r.Title) > titleLimit {
		r.Title = string([]rune(r.Title)[:titleLimit]) + "..."
	}
	return r
}

func fieldString(rec domain.Record, name, fallback string) string {
	v, ok := rec.Field(name)
	if !ok || v == nil {
		return fallback
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case int:
		if t == 0 {
			return fallback
		}
		s = strconv.Itoa(t)
	case []domain.Author:
		names := make([]string, len(t))
		for i, a := range t {
			names[i] = a.Name
		}
		s = strings.Join(names, ", ")
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return fallback
	}
	return s
}

func (s *Service) publishCompleted(ctx context.Context, q Query, resp *Response, unknown int, start time.Time) {
	briefs := make([]domain.PaperBrief, len(resp.Papers))
	for i, p := range resp.Papers {
		briefs[i] = domain.PaperBrief{PMID: p.PMID, Title: p.Title, URL: p.URL, Abstract: p.Abstract}
	}
	s.publish(ctx, domain.EventTypeSearchCompleted, domain.SearchCompletedPayload{
		Query:       resp.Query,
		YearFrom:    q.YearFrom,
		YearTo:      q.YearTo,
		Candidates:  resp.Candidates,
		Returned:    len(resp.Papers),
		UnknownRank: unknown,
		Papers:      briefs,
		DurationMs:  time.Since(start).Milliseconds(),
	})
}

// publish emits an event. Failures are logged and never fail the search.
func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	ev, err := domain.NewEvent(eventType, EventSource, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if id := observability.RequestIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func (s *Service) recordSearch(status string, candidates int, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordSearch(status, candidates, time.Since(start).Seconds())
	}
}
