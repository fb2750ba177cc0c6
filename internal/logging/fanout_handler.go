package logging

import (
	"context"
	"log/slog"
)

// fanoutHandler delivers each record to every child handler that accepts
// its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	var kept []slog.Handler
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0]
	default:
		return &fanoutHandler{handlers: kept}
	}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	last := len(h.handlers) - 1
	for idx, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if idx < last {
			rec = record.Clone()
		}
		if err := handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *fanoutHandler) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = fn(handler)
	}
	return &fanoutHandler{handlers: next}
}

// floorHandler drops records below floor regardless of what the wrapped
// handler's own level would accept. Error-only destinations use it.
type floorHandler struct {
	inner slog.Handler
	floor slog.Level
}

func (h floorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.floor && h.inner.Enabled(ctx, level)
}

func (h floorHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.inner.Handle(ctx, record)
}

func (h floorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return floorHandler{inner: h.inner.WithAttrs(attrs), floor: h.floor}
}

func (h floorHandler) WithGroup(name string) slog.Handler {
	return floorHandler{inner: h.inner.WithGroup(name), floor: h.floor}
}
