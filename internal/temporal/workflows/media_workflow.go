// Package workflows defines the Temporal workflows of the paper ranking
// service.
package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/paper-ranking-service/internal/media"
	ptemporal "github.com/helixir/paper-ranking-service/internal/temporal"
	"github.com/helixir/paper-ranking-service/internal/temporal/activities"
)

// QueryProgress is re-exported from the parent package.
const QueryProgress = ptemporal.QueryProgress

const mediaActivityTimeout = 5 * time.Minute

// mediaFutures holds the pending activities of one paper.
type mediaFutures struct {
	screenshot   workflow.Future
	illustration workflow.Future
}

// MediaWorkflow generates the screenshot and illustration of every paper.
//
// All activities are started up front and awaited in input order, so the
// progress query reports papers as they complete. A failing item is
// recorded as failed and never fails the workflow; only cancellation does.
func MediaWorkflow(ctx workflow.Context, input ptemporal.MediaWorkflowInput) (*ptemporal.MediaProgress, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting media workflow",
		"requestID", input.RequestID,
		"paperCount", len(input.Papers),
	)

	progress := &ptemporal.MediaProgress{
		RequestID: input.RequestID,
		Total:     len(input.Papers),
		Results:   make([]media.Result, len(input.Papers)),
	}

	err := workflow.SetQueryHandler(ctx, QueryProgress, func() (*ptemporal.MediaProgress, error) {
		return progress, nil
	})
	if err != nil {
		return nil, fmt.Errorf("register query handler: %w", err)
	}

	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: mediaActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{activities.ErrTypeInvalidInput},
		},
	})

	var act *activities.MediaActivities
	pending := make([]mediaFutures, len(input.Papers))
	for i, paper := range input.Papers {
		in := activities.MediaItemInput{Key: paper.Key, Request: paper.Request}
		progress.Results[i].Key = paper.Key
		pending[i] = mediaFutures{
			screenshot:   workflow.ExecuteActivity(actCtx, act.CaptureScreenshot, in),
			illustration: workflow.ExecuteActivity(actCtx, act.GenerateIllustration, in),
		}
	}

	for i, f := range pending {
		shot, err := awaitItem(ctx, f.screenshot, media.KindScreenshot)
		if err != nil {
			return progress, err
		}
		art, err := awaitItem(ctx, f.illustration, media.KindIllustration)
		if err != nil {
			return progress, err
		}
		progress.Results[i].Screenshot = shot
		progress.Results[i].Illustration = art
		progress.Completed++

		logger.Info("paper media done",
			"key", progress.Results[i].Key,
			"screenshot", shot.Status,
			"illustration", art.Status,
		)
	}

	logger.Info("media workflow completed",
		"requestID", input.RequestID,
		"completed", progress.Completed,
	)
	return progress, nil
}

// awaitItem resolves an activity future into an item. Activity failures
// become failed items; cancellation is returned.
func awaitItem(ctx workflow.Context, f workflow.Future, kind string) (media.Item, error) {
	var item media.Item
	err := f.Get(ctx, &item)
	if err == nil {
		return item, nil
	}
	if temporal.IsCanceledError(err) {
		return media.Item{}, err
	}

	msg := err.Error()
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		msg = appErr.Error()
	}
	return media.Item{Kind: kind, Status: media.StatusFailed, Error: msg}, nil
}
