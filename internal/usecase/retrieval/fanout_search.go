package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/metrics"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// FanoutConfig holds fan-out search parameters.
type FanoutConfig struct {
	// PerQueryLimit caps the hits returned for each phrasing.
	PerQueryLimit int
	// Concurrency bounds the phrasings searched at once. Zero means unbounded.
	Concurrency int
	// CallTimeout bounds each embed and each search call.
	CallTimeout time.Duration
}

// FanoutSearch embeds and searches every phrasing concurrently (Stage 2).
//
// Per-phrasing failures are recorded in sc.Phrasings and logged; the stage
// only fails when no phrasing succeeded. Cancelling ctx cancels every
// in-flight call.
func FanoutSearch(
	ctx context.Context,
	sc *StageContext,
	encoder domain.VectorEncoder,
	store domain.VectorStore,
	cfg FanoutConfig,
	logger *slog.Logger,
) error {
	ctx, span := tracer.Start(ctx, "retrieval.fanout_search")
	defer span.End()
	span.SetAttributes(attribute.Int("phrasing_count", len(sc.Queries)))

	searchStart := time.Now()
	results := make([]PhrasingResult, len(sc.Queries))

	var g errgroup.Group
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}

	for i, q := range sc.Queries {
		g.Go(func() error {
			hits, err := searchPhrasing(ctx, q, encoder, store, sc.Settings.Metric, cfg)
			results[i] = PhrasingResult{Index: i, Query: q, Hits: hits, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	sc.Phrasings = results

	var errs []error
	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
			metrics.RecordPhrasingSearch("success")
			continue
		}
		metrics.RecordPhrasingSearch("error")
		errs = append(errs, fmt.Errorf("phrasing %d: %w", r.Index, r.Err))
		logger.Warn("phrasing_search_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.Int("phrasing_index", r.Index),
			slog.String("phrasing", r.Query),
			slog.String("error", r.Err.Error()))
	}

	metrics.ObserveStage("fanout_search", time.Since(searchStart))
	logger.Info("fanout_search_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("phrasing_count", len(results)),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", len(errs)),
		slog.String("metric", string(sc.Settings.Metric)),
		slog.Int64("duration_ms", time.Since(searchStart).Milliseconds()))

	if succeeded == 0 && len(results) > 0 {
		err := fmt.Errorf("%w: %w", domain.ErrNoPhrasingSucceeded, errors.Join(errs...))
		recordSpanError(span, err)
		return err
	}
	return nil
}

func searchPhrasing(
	ctx context.Context,
	query string,
	encoder domain.VectorEncoder,
	store domain.VectorStore,
	metric domain.Metric,
	cfg FanoutConfig,
) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encodeCtx, cancel := withOptionalTimeout(ctx, cfg.CallTimeout)
	vectors, err := encoder.Encode(encodeCtx, []string{query})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to encode phrasing: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: encoder returned no vector", domain.ErrBackendInvocation)
	}

	searchCtx, cancel := withOptionalTimeout(ctx, cfg.CallTimeout)
	defer cancel()
	hits, err := store.Search(searchCtx, vectors[0], metric, cfg.PerQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	return hits, nil
}
