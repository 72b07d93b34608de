// Package oracle provides text oracles: LLM chat backends that answer a
// single prompt with a single string.
package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/helixir/paper-ranking-service/internal/observability"
)

// Asker sends one prompt and returns the raw answer text.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Named is implemented by providers that can report their identity for
// logs and metrics.
type Named interface {
	Provider() string
	Model() string
}

// InstrumentedAsker records request counts, failures and latency for every
// call made through the wrapped Asker.
type InstrumentedAsker struct {
	next      Asker
	operation string
	provider  string
	model     string
	metrics   *observability.Metrics
}

// Instrument wraps next so each Ask is recorded under the given operation
// label (for example "metric_lookup" or "summary"). A nil metrics returns
// next unchanged.
func Instrument(next Asker, operation string, metrics *observability.Metrics) Asker {
	if metrics == nil {
		return next
	}
	ia := &InstrumentedAsker{next: next, operation: operation, metrics: metrics, provider: "unknown", model: "unknown"}
	if n, ok := next.(Named); ok {
		ia.provider = n.Provider()
		ia.model = n.Model()
	}
	return ia
}

// Ask implements Asker.
func (a *InstrumentedAsker) Ask(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	answer, err := a.next.Ask(ctx, prompt)
	if err != nil {
		a.metrics.RecordLLMRequestFailed(a.operation, a.model, errorType(err))
		return "", err
	}
	a.metrics.RecordLLMRequest(a.operation, a.model, time.Since(start).Seconds())
	return answer, nil
}

// Provider returns the wrapped provider name.
func (a *InstrumentedAsker) Provider() string { return a.provider }

// Model returns the wrapped model name.
func (a *InstrumentedAsker) Model() string { return a.model }

func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrEmptyAnswer):
		return "empty"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 429 {
			return "rate_limited"
		}
		if apiErr.IsTransient() {
			return "server"
		}
		return "client"
	default:
		return "transport"
	}
}
