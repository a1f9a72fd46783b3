package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	processIDKey ctxKey = iota
	gestureIDKey
	documentIDKey
)

// WithProcessID returns a context carrying the active process id.
func WithProcessID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, processIDKey, id)
}

// WithGestureID returns a context carrying the id of the pointer gesture in flight.
func WithGestureID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, gestureIDKey, id)
}

// WithDocumentID returns a context carrying the stored document id.
func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, documentIDKey, id)
}

// ProcessID extracts the process id from the context, or 0 if absent.
func ProcessID(ctx context.Context) int {
	v, _ := ctx.Value(processIDKey).(int)
	return v
}

// GestureID extracts the gesture id from the context, or "" if absent.
func GestureID(ctx context.Context) string {
	v, _ := ctx.Value(gestureIDKey).(string)
	return v
}

// DocumentID extracts the document id from the context, or "" if absent.
func DocumentID(ctx context.Context) string {
	v, _ := ctx.Value(documentIDKey).(string)
	return v
}

// attrs collects the non-empty correlation values held by ctx.
func attrs(ctx context.Context) []slog.Attr {
	var out []slog.Attr
	if v := ProcessID(ctx); v != 0 {
		out = append(out, slog.Int("process_id", v))
	}
	if v := GestureID(ctx); v != "" {
		out = append(out, slog.String("gesture_id", v))
	}
	if v := DocumentID(ctx); v != "" {
		out = append(out, slog.String("document_id", v))
	}
	return out
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	for _, a := range attrs(ctx) {
		logger = logger.With(a)
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(attrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}

// ParseLevel maps a config level name to an slog.Level. Unknown names yield Info.
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}
