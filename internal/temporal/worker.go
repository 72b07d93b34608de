package temporal

import (
	"context"
	"errors"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig contains configuration for the Temporal worker. Zero values
// fall back to the DefaultWorkerConfig values.
type WorkerConfig struct {
	TaskQueue string

	MaxConcurrentActivityExecutionSize     int
	MaxConcurrentWorkflowTaskExecutionSize int
	MaxConcurrentActivityTaskPollers       int
	MaxConcurrentWorkflowTaskPollers       int
}

// DefaultWorkerConfig returns a WorkerConfig with default values. Media
// activities are slow and external, so activity concurrency is modest.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     20,
		MaxConcurrentWorkflowTaskExecutionSize: 20,
		MaxConcurrentActivityTaskPollers:       2,
		MaxConcurrentWorkflowTaskPollers:       2,
	}
}

func workerOptionsFromConfig(cfg WorkerConfig) worker.Options {
	def := DefaultWorkerConfig(cfg.TaskQueue)
	pick := func(v, fallback int) int {
		if v > 0 {
			return v
		}
		return fallback
	}
	return worker.Options{
		MaxConcurrentActivityExecutionSize:     pick(cfg.MaxConcurrentActivityExecutionSize, def.MaxConcurrentActivityExecutionSize),
		MaxConcurrentWorkflowTaskExecutionSize: pick(cfg.MaxConcurrentWorkflowTaskExecutionSize, def.MaxConcurrentWorkflowTaskExecutionSize),
		MaxConcurrentActivityTaskPollers:       pick(cfg.MaxConcurrentActivityTaskPollers, def.MaxConcurrentActivityTaskPollers),
		MaxConcurrentWorkflowTaskPollers:       pick(cfg.MaxConcurrentWorkflowTaskPollers, def.MaxConcurrentWorkflowTaskPollers),
	}
}

// WorkerManager owns the media worker and its registrations.
type WorkerManager struct {
	worker worker.Worker
}

// NewWorkerManager creates a worker polling cfg.TaskQueue.
func NewWorkerManager(c client.Client, cfg WorkerConfig) (*WorkerManager, error) {
	if cfg.TaskQueue == "" {
		return nil, errors.New("task queue is required")
	}
	return &WorkerManager{worker: worker.New(c, cfg.TaskQueue, workerOptionsFromConfig(cfg))}, nil
}

// RegisterWorkflow registers a workflow function.
func (m *WorkerManager) RegisterWorkflow(workflow interface{}) {
	m.worker.RegisterWorkflow(workflow)
}

// RegisterActivity registers an activity function or a struct whose
// methods are activities.
func (m *WorkerManager) RegisterActivity(activity interface{}) {
	m.worker.RegisterActivity(activity)
}

// Start runs the worker until ctx is cancelled or the worker fails.
func (m *WorkerManager) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	stop := make(chan interface{})
	go func() {
		errCh <- m.worker.Run(stop)
	}()

	select {
	case <-ctx.Done():
		close(stop)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
