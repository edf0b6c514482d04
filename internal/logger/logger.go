// Package logger provides structured logging for the endpoint analyzer.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log levels.
type Level = zerolog.Level

// Log levels.
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Logger wraps zerolog for structured logging. A Logger is created once per
// analysis run and handed to every component; there is no package-level
// instance.
type Logger struct {
	zl zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      Level
	Pretty     bool // Use console writer (colored output)
	Output     io.Writer
	TimeFormat string
	Component  string // Component name (e.g., "pattern", "semantic", "fusion")
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Pretty:     true,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		Logger().
		Level(cfg.Level)

	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}

	return &Logger{zl: zl}
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// Nop returns a logger that discards everything. Components fall back to it
// when constructed without a logger.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// WithComponent returns a new logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		zl: l.zl.With().Str("component", component).Logger(),
	}
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		zl: l.zl.With().Interface(key, value).Logger(),
	}
}

// WithRun returns a new logger tagged with the analysis run ID and source.
func (l *Logger) WithRun(runID, source string) *Logger {
	return &Logger{
		zl: l.zl.With().Str("run_id", runID).Str("source", source).Logger(),
	}
}

// WithChunk returns a new logger with chunk index and starting line.
func (l *Logger) WithChunk(index, startLine int) *Logger {
	return &Logger{
		zl: l.zl.With().Int("chunk", index).Int("start_line", startLine).Logger(),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

// Event returns a zerolog Event for complex logging.
func (l *Logger) Event(level Level) *zerolog.Event {
	switch level {
	case DebugLevel:
		return l.zl.Debug()
	case WarnLevel:
		return l.zl.Warn()
	case ErrorLevel:
		return l.zl.Error()
	default:
		return l.zl.Info()
	}
}

// ChunkEvent returns an event pre-filled with chunk coordinates.
func (l *Logger) ChunkEvent(level Level, index, startLine, size int) *zerolog.Event {
	return l.Event(level).
		Int("chunk", index).
		Int("start_line", startLine).
		Int("size", size)
}

// DetectionEvent logs a single candidate endpoint at debug level.
func (l *Logger) DetectionEvent(detector, method, path string, line int) {
	l.zl.Debug().
		Str("detector", detector).
		Str("method", method).
		Str("path", path).
		Int("line", line).
		Msg("Candidate endpoint")
}

// ErrorEvent logs an error event with context.
func (l *Logger) ErrorEvent(err error, source string, operation string) {
	l.zl.Error().
		Err(err).
		Str("source", source).
		Str("operation", operation).
		Msg("Operation failed")
}

// StatsEvent logs statistics.
func (l *Logger) StatsEvent(stats map[string]interface{}) {
	event := l.zl.Info()
	for k, v := range stats {
		event = event.Interface(k, v)
	}
	event.Msg("Analysis statistics")
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.zl = l.zl.Level(level)
}

// ParseLevel parses a level name. The empty string is InfoLevel.
func ParseLevel(levelStr string) (Level, error) {
	if levelStr == "" {
		return InfoLevel, nil
	}
	return zerolog.ParseLevel(levelStr)
}

// NewNamed creates a logger from a level name, falling back to InfoLevel
// when the name is not recognized.
func NewNamed(level string, pretty bool, out io.Writer) *Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = InfoLevel
	}
	return New(Config{Level: lvl, Pretty: pretty, Output: out})
}
