package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/metrics"
)

// SynthesizeConfig holds answer generation parameters.
type SynthesizeConfig struct {
	MaxTokens int
	Timeout   time.Duration
}

// Synthesize sends the bounded prompt to the model and returns its answer (Stage 6).
func Synthesize(
	ctx context.Context,
	sc *StageContext,
	llmClient domain.LLMClient,
	cfg SynthesizeConfig,
	logger *slog.Logger,
) (string, error) {
	ctx, span := tracer.Start(ctx, "retrieval.synthesize")
	defer span.End()

	start := time.Now()
	genCtx, cancel := withOptionalTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp, err := llmClient.Generate(genCtx, sc.Prompt, cfg.MaxTokens)
	if err != nil {
		recordSpanError(span, err)
		logger.Error("answer_generation_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("model", llmClient.Version()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	metrics.ObserveStage("synthesize", time.Since(start))
	logger.Info("answer_generated",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.String("model", llmClient.Version()),
		slog.Int("answer_length", len(resp.Text)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return resp.Text, nil
}
