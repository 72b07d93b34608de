package temporal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/api/serviceerror"
)

// Error kinds. A *TemporalError matches its kind with errors.Is.
var (
	ErrWorkflowNotFound       = errors.New("workflow not found")
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")
	ErrQueryFailed            = errors.New("query failed")
	ErrClientClosed           = errors.New("client closed")
	ErrConnectionFailed       = errors.New("connection failed")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrDeadlineExceeded       = errors.New("deadline exceeded")
)

// TemporalError records which client operation failed, on which workflow,
// and how.
type TemporalError struct {
	Op         string
	Kind       error
	WorkflowID string
	RunID      string
	Err        error
}

func (e *TemporalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Kind)
	switch {
	case e.WorkflowID != "" && e.RunID != "":
		fmt.Fprintf(&b, " [workflowID=%s, runID=%s]", e.WorkflowID, e.RunID)
	case e.WorkflowID != "":
		fmt.Fprintf(&b, " [workflowID=%s]", e.WorkflowID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TemporalError) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *TemporalError) Is(target error) bool { return errors.Is(e.Kind, target) }

// IsWorkflowAlreadyStarted reports whether err means the workflow ID is taken.
// The media listener relies on it to treat redelivered events as done.
func IsWorkflowAlreadyStarted(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyStarted)
}

// classify maps an SDK or service error to a kind. Anything unrecognized is
// treated as a connection failure.
func classify(err error) error {
	var (
		notFound       *serviceerror.NotFound
		alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		invalidArg     *serviceerror.InvalidArgument
		deadline       *serviceerror.DeadlineExceeded
		queryFailed    *serviceerror.QueryFailed
	)
	switch {
	case errors.As(err, &notFound):
		return ErrWorkflowNotFound
	case errors.As(err, &alreadyStarted):
		return ErrWorkflowAlreadyStarted
	case errors.As(err, &invalidArg):
		return ErrInvalidArgument
	case errors.As(err, &deadline), errors.Is(err, context.DeadlineExceeded):
		return ErrDeadlineExceeded
	case errors.As(err, &queryFailed):
		return ErrQueryFailed
	case errors.Is(err, context.Canceled):
		return ErrClientClosed
	default:
		return ErrConnectionFailed
	}
}

func wrapTemporalError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}
	return &TemporalError{Op: op, Kind: classify(err), WorkflowID: workflowID, RunID: runID, Err: err}
}
