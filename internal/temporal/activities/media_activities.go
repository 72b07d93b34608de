// Package activities holds the Temporal activities run by the media worker.
package activities

import (
	"context"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/paper-ranking-service/internal/media"
)

// Application error types returned by media activities.
const (
	ErrTypeInvalidInput    = "InvalidInput"
	ErrTypeMediaGeneration = "MediaGenerationFailed"
)

// MediaGenerator produces single images. *media.Service implements it.
type MediaGenerator interface {
	CaptureScreenshot(ctx context.Context, key string, req media.Request) media.Item
	GenerateIllustration(ctx context.Context, key string, req media.Request) media.Item
}

// MediaItemInput is the serializable input of a media activity.
type MediaItemInput struct {
	Key     string        `json:"key"`
	Request media.Request `json:"request"`
}

// MediaActivities exposes screenshot and illustration generation as
// Temporal activities. A failed item is returned as a retryable
// application error; skipped items are results, not errors.
type MediaActivities struct {
	generator MediaGenerator
}

// NewMediaActivities creates MediaActivities backed by generator.
func NewMediaActivities(generator MediaGenerator) *MediaActivities {
	return &MediaActivities{generator: generator}
}

// CaptureScreenshot captures the article page of one paper.
func (a *MediaActivities) CaptureScreenshot(ctx context.Context, input MediaItemInput) (*media.Item, error) {
	return a.run(ctx, media.KindScreenshot, input, a.generator.CaptureScreenshot)
}

// GenerateIllustration generates the AI illustration of one paper.
func (a *MediaActivities) GenerateIllustration(ctx context.Context, input MediaItemInput) (*media.Item, error) {
	return a.run(ctx, media.KindIllustration, input, a.generator.GenerateIllustration)
}

func (a *MediaActivities) run(ctx context.Context, kind string, input MediaItemInput, fn func(context.Context, string, media.Request) media.Item) (*media.Item, error) {
	logger := activity.GetLogger(ctx)

	if strings.TrimSpace(input.Key) == "" {
		return nil, temporal.NewNonRetryableApplicationError("media key is required", ErrTypeInvalidInput, nil)
	}

	logger.Info("generating media",
		"kind", kind,
		"key", input.Key,
		"attempt", activity.GetInfo(ctx).Attempt,
	)

	item := fn(ctx, input.Key, input.Request)
	if item.Status == media.StatusFailed {
		logger.Warn("media generation failed", "kind", kind, "key", input.Key, "error", item.Error)
		return nil, temporal.NewApplicationError(item.Error, ErrTypeMediaGeneration)
	}

	logger.Info("media ready", "kind", kind, "key", input.Key, "status", item.Status, "path", item.Path)
	return &item, nil
}
