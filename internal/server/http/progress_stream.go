package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/helixir/paper-ranking-service/internal/temporal"
)

const (
	// sseQueryInterval is how often the workflow progress query is issued.
	sseQueryInterval = 2 * time.Second
	// sseMaxDuration is the maximum time an SSE stream may remain open.
	sseMaxDuration = 30 * time.Minute
	// sseMaxQueryFailures ends the stream after this many failed queries in a row.
	sseMaxQueryFailures = 5
)

// sseEvent represents an event sent via SSE.
type sseEvent struct {
	EventType  string                 `json:"event_type"`
	WorkflowID string                 `json:"workflow_id"`
	Progress   *imageProgressResponse `json:"progress,omitempty"`
	Message    string                 `json:"message"`
	Timestamp  time.Time              `json:"timestamp"`
}

// streamImageProgress handles GET /api/generate_images/{workflowID}/stream
// (SSE). It polls the workflow progress query until every paper is done.
func (s *Server) streamImageProgress(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := s.workflowIDParam(w, r)
	if !ok {
		return
	}

	progress, err := s.deps.Workflows.QueryProgress(r.Context(), workflowID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if progress.Done() {
		sendSSEEvent(w, flusher, completedEvent(workflowID, progress))
		return
	}

	sendSSEEvent(w, flusher, progressEvent("stream_started", workflowID, progress))
	last := progress.Completed

	ctx := r.Context()
	deadlineTimer := time.NewTimer(sseMaxDuration)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(sseQueryInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return

		case <-deadlineTimer.C:
			sendSSEEvent(w, flusher, sseEvent{
				EventType:  "timeout",
				WorkflowID: workflowID,
				Message:    "stream max duration exceeded",
				Timestamp:  time.Now(),
			})
			return

		case <-ticker.C:
			current, pollErr := s.deps.Workflows.QueryProgress(ctx, workflowID)
			if pollErr != nil {
				failures++
				s.logger.Warn().Err(pollErr).Str("workflow_id", workflowID).Int("failures", failures).Msg("failed to query media progress")
				if failures >= sseMaxQueryFailures {
					sendSSEEvent(w, flusher, sseEvent{
						EventType:  "error",
						WorkflowID: workflowID,
						Message:    "progress unavailable",
						Timestamp:  time.Now(),
					})
					return
				}
				continue
			}
			failures = 0

			if current.Done() {
				sendSSEEvent(w, flusher, completedEvent(workflowID, current))
				return
			}
			if current.Completed != last {
				last = current.Completed
				sendSSEEvent(w, flusher, progressEvent("progress_update", workflowID, current))
			}
		}
	}
}

func progressEvent(eventType, workflowID string, p *temporal.MediaProgress) sseEvent {
	resp := progressToResponse(workflowID, p)
	return sseEvent{
		EventType:  eventType,
		WorkflowID: workflowID,
		Progress:   &resp,
		Message:    fmt.Sprintf("%d of %d papers done", p.Completed, p.Total),
		Timestamp:  time.Now(),
	}
}

func completedEvent(workflowID string, p *temporal.MediaProgress) sseEvent {
	ev := progressEvent("completed", workflowID, p)
	ev.Message = "media generation completed"
	return ev
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
	flusher.Flush()
}
