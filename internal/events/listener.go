package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/media"
	ptemporal "github.com/helixir/paper-ranking-service/internal/temporal"
)

// MediaStarter starts media workflows. *temporal.MediaWorkflowClient
// implements it.
type MediaStarter interface {
	StartMediaWorkflow(ctx context.Context, workflowFunc interface{}, input ptemporal.MediaWorkflowInput) (string, string, error)
}

// messageReader is the subset of *kafka.Reader used by MediaListener.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ListenerConfig configures the media listener.
type ListenerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// MediaListener consumes search.completed events and starts a media
// workflow for the returned papers, so images are ready before a user
// asks for them.
type MediaListener struct {
	reader       messageReader
	starter      MediaStarter
	workflowFunc interface{}
	keyFunc      func(paperID, url string) string
	logger       zerolog.Logger
}

// NewMediaListener creates a listener. keyFunc computes media store keys,
// normally (*media.Store).Key.
func NewMediaListener(cfg ListenerConfig, starter MediaStarter, workflowFunc interface{}, keyFunc func(paperID, url string) string, logger zerolog.Logger) *MediaListener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return newMediaListener(reader, starter, workflowFunc, keyFunc, logger)
}

func newMediaListener(reader messageReader, starter MediaStarter, workflowFunc interface{}, keyFunc func(paperID, url string) string, logger zerolog.Logger) *MediaListener {
	return &MediaListener{
		reader:       reader,
		starter:      starter,
		workflowFunc: workflowFunc,
		keyFunc:      keyFunc,
		logger:       logger.With().Str("component", "media_listener").Logger(),
	}
}

// Run consumes messages until ctx is cancelled. Bad messages and failed
// starts are logged and skipped.
func (l *MediaListener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting media listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("media listener stopped")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		var event domain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("failed to unmarshal event")
			continue
		}
		if event.EventType != domain.EventTypeSearchCompleted {
			continue
		}

		if err := l.handleSearchCompleted(ctx, &event); err != nil {
			l.logger.Error().Err(err).Str("event_id", event.EventID).Msg("failed to handle search.completed")
		}
	}
}

func (l *MediaListener) handleSearchCompleted(ctx context.Context, event *domain.Event) error {
	var payload domain.SearchCompletedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if len(payload.Papers) == 0 {
		return nil
	}

	input := ptemporal.MediaWorkflowInput{
		RequestID: event.EventID,
		Papers:    make([]ptemporal.MediaPaper, 0, len(payload.Papers)),
	}
	for i, p := range payload.Papers {
		req := media.Request{
			PaperID:  fmt.Sprintf("%d", i),
			Title:    p.Title,
			URL:      p.URL,
			Abstract: p.Abstract,
		}
		input.Papers = append(input.Papers, ptemporal.MediaPaper{Key: l.keyFunc(req.PaperID, req.URL), Request: req})
	}

	workflowID, _, err := l.starter.StartMediaWorkflow(ctx, l.workflowFunc, input)
	if err != nil {
		if ptemporal.IsWorkflowAlreadyStarted(err) {
			l.logger.Debug().Str("event_id", event.EventID).Msg("media workflow already started")
			return nil
		}
		return fmt.Errorf("start media workflow: %w", err)
	}

	l.logger.Info().
		Str("workflow_id", workflowID).
		Int("papers", len(input.Papers)).
		Msg("started media workflow")
	return nil
}

// Close closes the Kafka reader.
func (l *MediaListener) Close() error {
	return l.reader.Close()
}
