// Package logger provides slog plumbing shared by the inventory service.
package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDKey = "request_id"
	traceIDKey   = "trace_id"
)

// ContextHandler is a wrapper around slog.Handler that adds request scoped attributes
// (request id, trace id) found in the context of each record.
// Attributes already bound with Logger.With are not repeated.
type ContextHandler struct {
	slog.Handler
	boundRequestID bool
}

// NewContextHandler creates a new ContextHandler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{
		Handler: handler,
	}
}

// Handle processes a log record and adds context information.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		r.AddAttrs(slog.String(traceIDKey, span.SpanContext().TraceID().String()))
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" && !h.boundRequestID {
		r.AddAttrs(slog.String(requestIDKey, reqID))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes added.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.boundRequestID
	for _, a := range attrs {
		if a.Key == requestIDKey {
			bound = true
		}
	}
	return &ContextHandler{
		Handler:        h.Handler.WithAttrs(attrs),
		boundRequestID: bound,
	}
}

// WithGroup returns a new ContextHandler with the given group added.
// Attributes inside a group live under a different key, so the request id is added again.
func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{
		Handler: h.Handler.WithGroup(group),
	}
}

// ToLevel converts a string representation of a log level to slog.Level.
func ToLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
