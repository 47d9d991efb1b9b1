package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	loggerKey
)

// correlationIDField is the attribute name every request-scoped record carries.
const correlationIDField = "correlation_id"

// Logger wraps slog so request code can pass one handle around.
type Logger struct {
	*slog.Logger
}

// NewLoggerWithJSONOutput writes to stdout at LOG_LEVEL. LOG_FORMAT=text switches to logfmt-style output for local runs.
func NewLoggerWithJSONOutput() *Logger {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "text") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))}
	}
	return NewLogger(os.Stdout, level)
}

func NewLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

func NewDiscardLogger() *Logger {
	return NewLogger(io.Discard, slog.LevelError)
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithCorrelationID tags records with the request's correlation ID, minting one when ctx has none.
func (l *Logger) WithCorrelationID(ctx context.Context) *Logger {
	id, ok := CorrelationIDFromContext(ctx)
	if !ok {
		id = GenerateCorrelationID()
	}
	return l.With(correlationIDField, id)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

func GenerateCorrelationID() string {
	return uuid.NewString()
}

// GetLoggerInstanceFromContext returns the logger injected for this request. Without one it
// falls back to fallbackLogger (or a fresh stdout logger) tagged with the context's correlation ID.
func GetLoggerInstanceFromContext(ctx context.Context, fallbackLogger *Logger) *Logger {
	if ctx == nil {
		if fallbackLogger != nil {
			return fallbackLogger
		}
		return NewLoggerWithJSONOutput()
	}

	if l, ok := ctx.Value(loggerKey).(*Logger); ok && l != nil {
		return l
	}

	if fallbackLogger == nil {
		fallbackLogger = NewLoggerWithJSONOutput()
	}
	return fallbackLogger.WithCorrelationID(ctx)
}

func ContextWithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}
