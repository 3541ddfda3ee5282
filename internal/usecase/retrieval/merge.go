package retrieval

import (
	"log/slog"
	"sort"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/metrics"
)

// Merge deduplicates the successful hit lists into sc.Candidates (Stage 3).
func Merge(sc *StageContext, logger *slog.Logger) {
	lists := sc.SuccessfulHitLists()
	sc.Candidates = MergeHits(lists)

	total := 0
	for _, l := range lists {
		total += len(l)
	}
	metrics.ObserveCandidates(len(sc.Candidates))
	logger.Info("results_merged",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("hit_count", total),
		slog.Int("unique_count", len(sc.Candidates)))
}

// MergeHits keeps one hit per document ID. A later hit replaces an earlier
// one only when its score is strictly greater, so ties keep the first seen.
func MergeHits(hitLists [][]domain.SearchHit) map[int64]domain.SearchHit {
	merged := make(map[int64]domain.SearchHit)
	for _, hits := range hitLists {
		for _, hit := range hits {
			if existing, ok := merged[hit.ID]; ok && hit.Score <= existing.Score {
				continue
			}
			merged[hit.ID] = hit
		}
	}
	return merged
}

// OrderedCandidates returns merged hits by descending score, ties broken by
// ascending ID, giving later stages a deterministic input order.
func OrderedCandidates(merged map[int64]domain.SearchHit) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(merged))
	for _, hit := range merged {
		out = append(out, hit)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
