package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

const instrumentationName = "rag-assistant"

// New creates a JSON logger writing to stdout only.
func New() *slog.Logger {
	return NewWithOTel(false)
}

// NewWithOTel creates a logger that also exports through the global OTel
// logger provider when enableOTel is set.
func NewWithOTel(enableOTel bool) *slog.Logger {
	return newLogger(os.Stdout, parseLevel(os.Getenv("LOG_LEVEL")), enableOTel)
}

func newLogger(w io.Writer, level slog.Level, enableOTel bool) *slog.Logger {
	var handler slog.Handler
	if enableOTel {
		handler = NewMultiHandler(w, level)
	} else {
		handler = NewTraceContextHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	l := slog.New(handler)
	l.Info("logger_initialized", slog.Bool("otel_enabled", enableOTel), slog.String("level", level.String()))
	return l
}

// MultiHandler sends logs to multiple handlers
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler writes JSON to w and exports through the otelslog bridge.
func NewMultiHandler(w io.Writer, level slog.Level) *MultiHandler {
	stdoutHandler := NewTraceContextHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))

	otelHandler := otelslog.NewHandler(
		instrumentationName,
		otelslog.WithLoggerProvider(global.GetLoggerProvider()),
	)

	return &MultiHandler{
		handlers: []slog.Handler{
			stdoutHandler,
			otelHandler,
		},
	}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r)
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: newHandlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: newHandlers}
}
