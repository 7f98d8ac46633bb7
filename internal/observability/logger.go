package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is the output format (json, console).
	Format string

	// Output is stdout, stderr or discard. Prompts use stdout, so the
	// harvester logs to stderr by default.
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns the configuration used when none is given.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "warn",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a zerolog logger writing to the destination named by cfg.Output.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		out = io.Discard
	default:
		out = os.Stderr
	}
	return NewLoggerTo(out, cfg)
}

// NewLoggerTo creates a zerolog logger writing to out. The level applies to
// the returned logger only; the global zerolog level is left alone.
func NewLoggerTo(out io.Writer, cfg LoggingConfig) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		ctx = ctx.Caller()
	}
	return ctx.Logger().Level(parseLevel(cfg.Level))
}

// parseLevel maps a level name to zerolog.Level, accepting "warning" as an
// alias. Unknown names fall back to info.
func parseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return l
}

// WithRunContext adds the harvest run identifier to a logger.
func WithRunContext(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().
		Str("run_id", runID).
		Logger()
}

// WithSearchContext adds search-related fields to a logger.
func WithSearchContext(logger zerolog.Logger, query, source string) zerolog.Logger {
	return logger.With().
		Str("query", query).
		Str("source", source).
		Logger()
}

// WithArticleContext adds article-related fields to a logger.
func WithArticleContext(logger zerolog.Logger, title, journal string) zerolog.Logger {
	return logger.With().
		Str("title", title).
		Str("journal", journal).
		Logger()
}
