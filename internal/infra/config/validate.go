package config

import (
	"errors"
	"fmt"

	"rag-assistant/internal/domain"
)

// Validate reports every invalid retrieval parameter at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := domain.ParseMetric(c.RAG.Metric); err != nil {
		errs = append(errs, err)
	}
	if _, err := domain.ParseProviderKind(c.LLM.DefaultProvider); err != nil {
		errs = append(errs, err)
	}
	if c.Embedder.Model == "" {
		errs = append(errs, errors.New("EMBEDDING_MODEL must not be empty"))
	}
	if c.RAG.VariantCount < 0 {
		errs = append(errs, fmt.Errorf("RAG_VARIANT_COUNT must be >= 0, got %d", c.RAG.VariantCount))
	}
	if c.RAG.PerQueryLimit <= 0 {
		errs = append(errs, fmt.Errorf("RAG_PER_QUERY_LIMIT must be > 0, got %d", c.RAG.PerQueryLimit))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RAG_TOP_K must be > 0, got %d", c.RAG.TopK))
	}
	if c.RAG.WordLimit <= 0 {
		errs = append(errs, fmt.Errorf("RAG_WORD_LIMIT must be > 0, got %d", c.RAG.WordLimit))
	}
	if c.RAG.FanoutConcurrency < 0 {
		errs = append(errs, fmt.Errorf("RAG_FANOUT_CONCURRENCY must be >= 0, got %d", c.RAG.FanoutConcurrency))
	}
	if c.RAG.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RAG_CALL_TIMEOUT must be > 0, got %s", c.RAG.CallTimeout))
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_TRACE_SAMPLE_RATIO must be within [0, 1], got %v", c.OTel.SampleRatio))
	}
	return errors.Join(errs...)
}

// InitialSettings derives the first published retrieval settings snapshot.
// Valid values come back canonical; invalid ones are kept as given so that
// publishing the snapshot reports them.
func (c *Config) InitialSettings() domain.RetrievalSettings {
	raw := domain.RetrievalSettings{
		EmbeddingModel: c.Embedder.Model,
		Metric:         domain.Metric(c.RAG.Metric),
		Provider:       domain.ProviderKind(c.LLM.DefaultProvider),
	}
	if normalized, err := raw.Normalize(); err == nil {
		return normalized
	}
	return raw
}
