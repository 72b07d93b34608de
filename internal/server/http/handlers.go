package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/media"
	"github.com/helixir/paper-ranking-service/internal/observability"
	"github.com/helixir/paper-ranking-service/internal/search"
	"github.com/helixir/paper-ranking-service/internal/summary"
	"github.com/helixir/paper-ranking-service/internal/temporal"
)

const (
	maxRequestBodySize    = 1 << 20 // 1 MB limit for request bodies
	mediaWorkflowIDPrefix = "media-"
)

// decodeJSON reads a size-limited JSON body into v and validates it.
func (s *Server) decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodyBytes+1))
	if err != nil {
		return domain.NewValidationError("body", "failed to read request body")
	}
	if int64(len(body)) > s.maxBodyBytes {
		return domain.NewValidationError("body", "request body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return domain.NewValidationError("body", "request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewValidationError("body", "invalid JSON request body")
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewValidationError(strings.ToLower(verrs[0].Field()), "failed "+verrs[0].Tag()+" check")
		}
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}

// searchPapers handles POST /api/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, s.logger)

	var req searchRequest
	if err := s.decodeJSON(r, &req); err != nil {
		logger.Warn().Err(err).Msg("invalid search request")
		writeJSON(w, http.StatusBadRequest, resultResponse{Result: msgInvalidBody})
		return
	}

	logger.Info().
		Str("theme", req.Theme).
		Str("key1", req.Key1).
		Str("key2", req.Key2).
		Int("start_year", int(req.StartYear)).
		Int("end_year", int(req.EndYear)).
		Str("user_agent", r.UserAgent()).
		Msg("search request received")

	resp, err := s.deps.Search.Search(ctx, req.query())
	if err != nil {
		status, message := statusForError(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("search failed")
		}
		writeJSON(w, status, resultResponse{Result: msgSearchFailed + message})
		return
	}

	if len(resp.Papers) == 0 {
		writeJSON(w, http.StatusOK, resultResponse{Result: search.NoResultsMessage})
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Papers: resp.Papers, Status: statusSuccess})
}

// getPaperSummary handles POST /api/get_paper_summary. Oracle failures are
// reported in the summary text, not as an HTTP error.
func (s *Server) getPaperSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, s.logger)

	req, ok := s.decodePaperRequest(w, r)
	if !ok {
		return
	}
	if s.deps.Summaries == nil {
		writeError(w, http.StatusServiceUnavailable, "summary service not configured")
		return
	}

	text, err := s.deps.Summaries.Summarize(ctx, summary.Input{
		Title:    req.PaperData.Title,
		URL:      req.PaperData.URL,
		Abstract: req.PaperData.Abstract,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		text = summary.Unavailable
	case err != nil:
		logger.Error().Err(err).Str("paper_id", string(req.PaperID)).Msg("summary failed")
		text = summary.Failed
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: text, Status: statusCompleted})
}

// generateImages handles POST /api/generate_images. With "async": true the
// work is handed to a Temporal workflow and 202 is returned.
func (s *Server) generateImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, s.logger)

	req, ok := s.decodePaperRequest(w, r)
	if !ok {
		return
	}
	mreq := req.mediaRequest()

	if req.Async {
		if s.deps.Workflows == nil || s.deps.Store == nil {
			writeError(w, http.StatusServiceUnavailable, msgNoWorkflows)
			return
		}
		workflowID, runID, err := s.deps.Workflows.StartMediaWorkflow(ctx, s.deps.WorkflowFunc, temporal.MediaWorkflowInput{
			Papers: []temporal.MediaPaper{{
				Key:     s.deps.Store.Key(mreq.PaperID, mreq.URL),
				Request: mreq,
			}},
		})
		if err != nil {
			logger.Error().Err(err).Str("paper_id", mreq.PaperID).Msg("failed to start media workflow")
			writeDomainError(w, err)
			return
		}
		logger.Info().Str("workflow_id", workflowID).Str("paper_id", mreq.PaperID).Msg("media workflow started")
		writeJSON(w, http.StatusAccepted, imagesAcceptedResponse{
			WorkflowID: workflowID,
			RunID:      runID,
			Status:     statusAccepted,
		})
		return
	}

	if s.deps.Media == nil {
		writeError(w, http.StatusServiceUnavailable, "media service not configured")
		return
	}
	res, err := s.deps.Media.Generate(ctx, mreq)
	if err != nil {
		logger.Error().Err(err).Str("paper_id", mreq.PaperID).Msg("image generation failed")
		_, message := statusForError(err)
		writeError(w, http.StatusInternalServerError, msgImagesFailed+message)
		return
	}
	logger.Info().Str("paper_id", mreq.PaperID).Str("result", res.Message()).Msg("images ready")
	writeJSON(w, http.StatusOK, imagesResponse{Result: res.Message(), Status: statusCompleted, Images: &res})
}

// getImageProgress handles GET /api/generate_images/{workflowID}.
func (s *Server) getImageProgress(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := s.workflowIDParam(w, r)
	if !ok {
		return
	}
	progress, err := s.deps.Workflows.QueryProgress(r.Context(), workflowID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressToResponse(workflowID, progress))
}

// serveDynamicImage handles GET /dynamic_images/{file}.
func (s *Server) serveDynamicImage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, msgImageNotFound, http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "file")
	path, err := s.deps.Store.Open(name)
	switch {
	case errors.Is(err, media.ErrInvalidName):
		s.logger.Warn().Str("file", name).Msg("rejected image file name")
		http.Error(w, msgInvalidName, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, msgImageNotFound, http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// decodePaperRequest parses the body shared by the summary and image
// endpoints, writing the 400 response itself when it is unusable.
func (s *Server) decodePaperRequest(w http.ResponseWriter, r *http.Request) (paperRequest, bool) {
	var req paperRequest
	if err := s.decodeJSON(r, &req); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) && ve.Field == "body" {
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return req, false
		}
		writeError(w, http.StatusBadRequest, msgMissingPaper)
		return req, false
	}
	if !req.complete() {
		writeError(w, http.StatusBadRequest, msgMissingPaper)
		return req, false
	}
	return req, true
}

// workflowIDParam reads and checks the {workflowID} URL parameter.
func (s *Server) workflowIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.deps.Workflows == nil {
		writeError(w, http.StatusServiceUnavailable, msgNoWorkflows)
		return "", false
	}
	id := chi.URLParam(r, "workflowID")
	if !strings.HasPrefix(id, mediaWorkflowIDPrefix) || len(id) > 128 {
		writeError(w, http.StatusBadRequest, "workflow_id must be a media workflow ID")
		return "", false
	}
	return id, true
}

// statusForError maps an error to an HTTP status and a message that is safe
// to show to clients.
func statusForError(err error) (int, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, temporal.ErrWorkflowNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		return http.StatusConflict, "workflow already started"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limited"
	case errors.Is(err, domain.ErrServiceUnavailable), errors.Is(err, domain.ErrNotConfigured),
		errors.Is(err, temporal.ErrConnectionFailed), errors.Is(err, temporal.ErrClientClosed):
		return http.StatusServiceUnavailable, "service unavailable"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusBadGateway, "upstream rejected credentials"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeDomainError maps domain and temporal errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status, message := statusForError(err)
	writeError(w, status, message)
}
