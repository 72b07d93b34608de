package observability

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

var (
	_ log.Logger     = (*TemporalLogger)(nil)
	_ log.WithLogger = (*TemporalLogger)(nil)
)

// TemporalLogger routes Temporal SDK logs (workflow and activity
// lifecycle, retries) through zerolog.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger tags every entry with component=temporal-sdk.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Debug(), msg, keyvals)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Info(), msg, keyvals)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Warn(), msg, keyvals)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Error(), msg, keyvals)
}

// With attaches keyvals (WorkflowID, RunID, ActivityType...) to every entry.
func (l *TemporalLogger) With(keyvals ...interface{}) log.Logger {
	return &TemporalLogger{logger: l.logger.With().Fields(pairs(keyvals)).Logger()}
}

func (l *TemporalLogger) emit(e *zerolog.Event, msg string, keyvals []interface{}) {
	e.Fields(pairs(keyvals)).Msg(msg)
}

// pairs turns alternating keys and values into zerolog fields. Non-string
// keys are formatted; an odd trailing key is dropped.
func pairs(keyvals []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keyvals)/2)
	for len(keyvals) >= 2 {
		k, v := keyvals[0], keyvals[1]
		keyvals = keyvals[2:]
		if s, ok := k.(string); ok {
			fields[s] = v
			continue
		}
		fields[fmt.Sprint(k)] = v
	}
	return fields
}
