package usecase

import (
	"errors"
	"fmt"
	"time"

	"rag-assistant/internal/usecase/retrieval"
)

// PipelineConfig holds the tunable parameters of every retrieval stage.
type PipelineConfig struct {
	Expand     retrieval.ExpandConfig
	Fanout     retrieval.FanoutConfig
	Rerank     retrieval.RerankConfig
	Budget     retrieval.BudgetConfig
	Synthesize retrieval.SynthesizeConfig
}

// DefaultPipelineConfig returns the defaults used when nothing is configured:
// three alternate phrasings, five hits per phrasing, top five after
// reranking and a 3000-word prompt.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Expand: retrieval.ExpandConfig{
			VariantCount: 3,
			MaxTokens:    256,
			Timeout:      30 * time.Second,
		},
		Fanout: retrieval.FanoutConfig{
			PerQueryLimit: 5,
			Concurrency:   4,
			CallTimeout:   30 * time.Second,
		},
		Rerank: retrieval.RerankConfig{
			TopK:    5,
			Timeout: 30 * time.Second,
		},
		Budget: retrieval.BudgetConfig{
			WordLimit: 3000,
		},
		Synthesize: retrieval.SynthesizeConfig{
			Timeout: 120 * time.Second,
		},
	}
}

// Validate checks if the configuration values are within acceptable ranges.
func (c PipelineConfig) Validate() error {
	var errs []error
	if c.Expand.VariantCount < 0 {
		errs = append(errs, fmt.Errorf("variantCount must be non-negative, got %d", c.Expand.VariantCount))
	}
	if c.Fanout.PerQueryLimit <= 0 {
		errs = append(errs, fmt.Errorf("perQueryLimit must be positive, got %d", c.Fanout.PerQueryLimit))
	}
	if c.Fanout.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("fanout concurrency must be non-negative, got %d", c.Fanout.Concurrency))
	}
	if c.Rerank.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rerank topK must be positive, got %d", c.Rerank.TopK))
	}
	if c.Budget.WordLimit < 0 {
		errs = append(errs, fmt.Errorf("wordLimit must be non-negative, got %d", c.Budget.WordLimit))
	}
	return errors.Join(errs...)
}
