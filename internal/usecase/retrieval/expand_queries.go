package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/metrics"
)

// ExpansionSeparator delimits alternate phrasings in the model response.
const ExpansionSeparator = "#next-question#"

var enumerationMarker = regexp.MustCompile(`^\d+\.\s*`)

// ExpandConfig holds query expansion parameters.
type ExpandConfig struct {
	// VariantCount is the number of alternate phrasings requested.
	VariantCount int
	MaxTokens    int
	Timeout      time.Duration
}

// ExpandQueries asks the model for alternate phrasings of the query (Stage 1).
// A backend failure aborts the request; there is no fallback expansion.
func ExpandQueries(
	ctx context.Context,
	sc *StageContext,
	llmClient domain.LLMClient,
	cfg ExpandConfig,
	logger *slog.Logger,
) error {
	ctx, span := tracer.Start(ctx, "retrieval.expand_queries")
	defer span.End()

	if cfg.VariantCount <= 0 {
		sc.Queries = []string{sc.Query}
		logger.Info("query_expansion_skipped",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.Int("variant_count", cfg.VariantCount))
		return nil
	}

	start := time.Now()
	expandCtx, cancel := withOptionalTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp, err := llmClient.Generate(expandCtx, BuildExpansionPrompt(sc.Query, cfg.VariantCount), cfg.MaxTokens)
	if err != nil {
		recordSpanError(span, err)
		logger.Error("query_expansion_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("model", llmClient.Version()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to expand query: %w", err)
	}

	sc.Queries = ParseExpansion(sc.Query, resp.Text)
	metrics.ObserveStage("expand", time.Since(start))

	logger.Info("query_expanded",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.String("original", sc.Query),
		slog.Int("variant_count", len(sc.Queries)-1),
		slog.Any("queries", sc.Queries),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

// BuildExpansionPrompt renders the instruction asking for variantCount
// alternate phrasings separated by ExpansionSeparator.
func BuildExpansionPrompt(query string, variantCount int) string {
	return fmt.Sprintf(`You are an AI language model assistant. Your task is to generate
%d different versions of the given user question to retrieve relevant
documents from a vector database. By generating multiple perspectives on the user
question, your goal is to help the user overcome some of the limitations of the
distance-based similarity search.
IMPORTANT: Provide ONLY the alternative questions, one per line, separated by '%s'.
Do NOT include numbering, explanations, or any other text. Just the questions.
Original question: %s
Alternative questions:`, variantCount, ExpansionSeparator, query)
}

// ParseExpansion turns a raw model response into the expanded query set.
// The first element is always query; variants are never empty and never
// equal to query. Duplicate variants are kept.
func ParseExpansion(query, raw string) []string {
	queries := []string{query}
	original := strings.TrimSpace(query)
	for _, fragment := range strings.Split(strings.TrimSpace(raw), ExpansionSeparator) {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}
		cleaned := strings.TrimSpace(enumerationMarker.ReplaceAllString(trimmed, ""))
		if cleaned == "" || cleaned == original {
			continue
		}
		queries = append(queries, cleaned)
	}
	return queries
}
