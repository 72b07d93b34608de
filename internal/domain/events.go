package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published domain events.
const (
	EventTypeSearchCompleted = "search.completed"
	EventTypeSearchFailed    = "search.failed"
	EventTypeMediaGenerated  = "media.generated"
)

// Event is a domain event published to the event bus.
type Event struct {
	EventID       string          `json:"event_id"`
	EventVersion  int             `json:"event_version"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEvent creates a new event with the given type and payload.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, source string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:      uuid.New().String(),
		EventVersion: 1,
		EventType:    eventType,
		Source:       source,
		Payload:      payloadBytes,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// PaperBrief identifies a returned paper in event payloads.
type PaperBrief struct {
	PMID     string `json:"pmid"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Abstract string `json:"abstract,omitempty"`
}

// SearchCompletedPayload is the payload of a search.completed event.
type SearchCompletedPayload struct {
	Query       string       `json:"query"`
	YearFrom    int          `json:"year_from,omitempty"`
	YearTo      int          `json:"year_to,omitempty"`
	Candidates  int          `json:"candidates"`
	Returned    int          `json:"returned"`
	UnknownRank int          `json:"unknown_metric"`
	Papers      []PaperBrief `json:"papers"`
	DurationMs  int64        `json:"duration_ms"`
}

// SearchFailedPayload is the payload of a search.failed event.
type SearchFailedPayload struct {
	Query string `json:"query"`
	Error string `json:"error"`
}

// MediaGeneratedPayload is the payload of a media.generated event.
type MediaGeneratedPayload struct {
	Key          string `json:"key"`
	Screenshot   string `json:"screenshot"`
	Illustration string `json:"illustration"`
}
