package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// RetrievalIDKey identifies one pipeline execution across all stages.
	RetrievalIDKey ContextKey = "rag.retrieval.id"
	// ProviderKey is the LLM provider serving the request.
	ProviderKey ContextKey = "rag.llm.provider"
)

// WithRetrievalID adds the retrieval ID to context for observability.
func WithRetrievalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RetrievalIDKey, id)
}

// WithProvider adds the provider name to context for observability.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// FromContext returns base enriched with any request values found in ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	var fields []any
	if id, ok := ctx.Value(RetrievalIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String("retrieval_id", id))
	}
	if provider, ok := ctx.Value(ProviderKey).(string); ok && provider != "" {
		fields = append(fields, slog.String("provider", provider))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
