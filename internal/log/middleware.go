package log

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLength = 128

// CorrelationIDFromHeader keeps a usable inbound ID and mints a new one otherwise.
func CorrelationIDFromHeader(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxCorrelationIDLength || strings.ContainsAny(id, "\r\n\t ") {
		return GenerateCorrelationID()
	}
	return id
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// LogRequest writes the access log line for a finished request.
func LogRequest(l *Logger, r *http.Request, status int, latency time.Duration, clientIP string) {
	l.WithCorrelationID(r.Context()).Info("HTTP request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
		"remote_addr", clientIP,
		"user_agent", strings.Split(r.UserAgent(), "/")[0],
	)
}
