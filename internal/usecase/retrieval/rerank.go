package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/metrics"
)

// RerankConfig holds reranking stage parameters.
type RerankConfig struct {
	TopK    int
	Timeout time.Duration
}

// Rerank scores every merged candidate against the original query and keeps
// the best TopK (Stage 4). A reranker failure aborts the request.
func Rerank(
	ctx context.Context,
	sc *StageContext,
	reranker domain.Reranker,
	cfg RerankConfig,
	logger *slog.Logger,
) error {
	ordered := OrderedCandidates(sc.Candidates)
	if len(ordered) == 0 {
		sc.Ranked = []domain.RankedDocument{}
		logger.Info("reranking_skipped_no_candidates",
			slog.String("retrieval_id", sc.RetrievalID))
		return nil
	}

	ctx, span := tracer.Start(ctx, "retrieval.rerank")
	defer span.End()

	rerankStart := time.Now()

	candidates := make([]domain.RerankCandidate, len(ordered))
	for i, h := range ordered {
		candidates[i] = domain.RerankCandidate{ID: h.ID, Content: h.Content, Score: h.Score}
	}

	rerankCtx, cancel := withOptionalTimeout(ctx, cfg.Timeout)
	results, err := reranker.Rerank(rerankCtx, sc.Query, candidates)
	cancel()

	rerankDuration := time.Since(rerankStart)
	if err != nil {
		recordSpanError(span, err)
		logger.Error("reranking_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", rerankDuration.Milliseconds()))
		return fmt.Errorf("failed to rerank candidates: %w", err)
	}

	ranked, err := ApplyRerankScores(ordered, results, cfg.TopK)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	sc.Ranked = ranked

	metrics.ObserveStage("rerank", rerankDuration)
	logger.Info("reranking_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("kept_count", len(ranked)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", rerankDuration.Milliseconds()))
	return nil
}

// ApplyRerankScores joins scores onto candidates, sorts them descending with
// a stable sort over the candidate order, and truncates to topK. Every
// candidate must have received a score.
func ApplyRerankScores(candidates []domain.SearchHit, results []domain.RerankResult, topK int) ([]domain.RankedDocument, error) {
	scores := make(map[int64]float64, len(results))
	for _, r := range results {
		scores[r.ID] = r.Score
	}

	ranked := make([]domain.RankedDocument, 0, len(candidates))
	for _, c := range candidates {
		score, ok := scores[c.ID]
		if !ok {
			return nil, fmt.Errorf("%w: reranker returned no score for document %d", domain.ErrBackendInvocation, c.ID)
		}
		ranked = append(ranked, domain.RankedDocument{
			ID:          c.ID,
			Title:       c.Title,
			Content:     c.Content,
			Similarity:  c.Score,
			RerankScore: score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
