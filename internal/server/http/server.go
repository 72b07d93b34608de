// Package httpserver provides the HTTP API of the paper ranking service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-ranking-service/internal/media"
	"github.com/helixir/paper-ranking-service/internal/observability"
	"github.com/helixir/paper-ranking-service/internal/search"
	"github.com/helixir/paper-ranking-service/internal/summary"
	"github.com/helixir/paper-ranking-service/internal/temporal"
)

// Searcher runs ranked literature searches.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

// Summarizer summarizes a paper.
type Summarizer interface {
	Summarize(ctx context.Context, in summary.Input) (string, error)
}

// MediaGenerator produces paper images synchronously.
type MediaGenerator interface {
	Generate(ctx context.Context, req media.Request) (media.Result, error)
}

// MediaWorkflows starts and inspects background media workflows.
type MediaWorkflows interface {
	StartMediaWorkflow(ctx context.Context, workflowFunc interface{}, input temporal.MediaWorkflowInput) (string, string, error)
	QueryProgress(ctx context.Context, workflowID string) (*temporal.MediaProgress, error)
	Health(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps JSON request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Deps are the services behind the API. Summaries, Media and Workflows may
// be nil; the matching endpoints then answer 503.
type Deps struct {
	Search    Searcher
	Summaries Summarizer
	Media     MediaGenerator
	// Store serves /dynamic_images and derives workflow keys.
	Store *media.Store
	// Workflows enables "async": true on /api/generate_images.
	Workflows MediaWorkflows
	// WorkflowFunc is the media workflow function passed to Temporal.
	WorkflowFunc interface{}
	Metrics      *observability.Metrics
}

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	deps         Deps
	validate     *validator.Validate
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = maxRequestBodySize
	}
	s := &Server{
		deps:         deps,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggingMiddleware(s.logger))
	if s.deps.Metrics != nil {
		r.Use(metricsMiddleware(s.deps.Metrics))
	}

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	r.Get("/dynamic_images/{file}", s.serveDynamicImage)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)
		r.Post("/search", s.searchPapers)
		r.Post("/get_paper_summary", s.getPaperSummary)
		r.Post("/generate_images", s.generateImages)
		r.Get("/generate_images/{workflowID}", s.getImageProgress)
		r.Get("/generate_images/{workflowID}/stream", s.streamImageProgress)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports Temporal connectivity when background media
// generation is configured.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ready"}
	if s.deps.Workflows != nil {
		if err := s.deps.Workflows.Health(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("temporal health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "not_ready",
				"temporal": "unhealthy",
			})
			return
		}
		resp["temporal"] = "healthy"
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
