package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/jobcore/internal/requestid"
)

type fireInstanceKey struct{}

// WithFireInstanceID returns a copy of ctx carrying the fire-instance id a
// worker assigns when a trigger fires (spec §3 "fire-instance id"), the way
// requestid carries an HTTP request id through a handler chain.
func WithFireInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, fireInstanceKey{}, id)
}

// FireInstanceIDFromContext extracts the fire-instance id, or "" if absent.
func FireInstanceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(fireInstanceKey{}).(string)
	return id
}

// ContextHandler wraps an slog.Handler and enriches every record with
// context-carried correlation ids: fire_instance_id for engine/worker
// logging, request_id for the demo HTTP layer.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler returns a handler that enriches every record with
// context values before delegating to inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := FireInstanceIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("fire_instance_id", id))
	}
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
