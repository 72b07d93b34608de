// Package temporal integrates the media workflow with a Temporal cluster.
//
// Screenshot and illustration generation is slow and depends on external
// services, so the HTTP API can hand it to a Temporal worker instead of
// running it inline. This package holds the parts shared by the API and
// the worker: client construction, MediaWorkflowClient, the workflow input
// and progress types, and WorkerManager.
//
// The workflow itself lives in the workflows subpackage and its activities
// in the activities subpackage, so the API server never imports workflow
// code.
//
//	c, err := temporal.NewClient(cfg, logger)
//	mc := temporal.NewMediaWorkflowClient(c, cfg)
//	id, runID, err := mc.StartMediaWorkflow(ctx, workflows.MediaWorkflow, input)
//	progress, err := mc.QueryProgress(ctx, id)
package temporal
