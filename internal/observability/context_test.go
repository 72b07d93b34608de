package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		assert.Equal(t, "", RequestIDFromContext(context.Background()))
	})
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	assert.Equal(t, "", CorrelationIDFromContext(context.Background()))
}

func TestTraceSpanFromContext(t *testing.T) {
	t.Run("returns empty strings without a span", func(t *testing.T) {
		traceID, spanID := TraceSpanFromContext(context.Background())
		assert.Empty(t, traceID)
		assert.Empty(t, spanID)
	})

	t.Run("reads the active span context", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{0x01, 0x02},
			SpanID:  trace.SpanID{0x03},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		traceID, spanID := TraceSpanFromContext(ctx)
		assert.Equal(t, sc.TraceID().String(), traceID)
		assert.Equal(t, sc.SpanID().String(), spanID)
	})
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-9")
	ctx = WithCorrelationID(ctx, "corr-9")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("handled")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "corr-9", entry["correlation_id"])
	assert.NotContains(t, entry, "trace_id")
}
