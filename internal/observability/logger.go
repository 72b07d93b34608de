package observability

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig mirrors the logging config section.
type LoggingConfig struct {
	// Level is trace, debug, info, warn (or warning), error, fatal or panic.
	// Anything else means info.
	Level string

	// Format is json, console (no color) or pretty (color).
	Format string

	// Output is stdout, stderr or a file path. A file and its parent
	// directories are created; the file is appended to.
	Output string

	AddSource  bool
	TimeFormat string
}

// DefaultLoggingConfig logs JSON at info level to stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds a logger writing to cfg.Output. An output file that
// cannot be opened falls back to stdout.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	return NewLoggerWithWriter(cfg, openOutput(cfg.Output))
}

// NewLoggerWithWriter builds a logger writing to w; cfg.Output is ignored.
func NewLoggerWithWriter(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch format := strings.ToLower(cfg.Format); format {
	case "console", "pretty":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: format == "console"}
	}

	lc := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.AddSource {
		lc = lc.Caller()
	}
	return lc.Logger()
}

// ParseLevel maps a level name to a zerolog level, case-insensitively.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || lvl == zerolog.NoLevel || lvl == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return lvl
}

func openOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return os.Stdout
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stdout
	}
	return f
}
