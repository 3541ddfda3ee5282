package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	assert.Equal(t, 3, cfg.Expand.VariantCount)
	assert.Equal(t, 5, cfg.Fanout.PerQueryLimit)
	assert.Equal(t, 5, cfg.Rerank.TopK)
	assert.Equal(t, 3000, cfg.Budget.WordLimit)
	require.NoError(t, cfg.Validate())
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PipelineConfig)
		wantErr string
	}{
		{"negative variants", func(c *PipelineConfig) { c.Expand.VariantCount = -1 }, "variantCount"},
		{"zero per-query limit", func(c *PipelineConfig) { c.Fanout.PerQueryLimit = 0 }, "perQueryLimit"},
		{"negative concurrency", func(c *PipelineConfig) { c.Fanout.Concurrency = -2 }, "concurrency"},
		{"zero topK", func(c *PipelineConfig) { c.Rerank.TopK = 0 }, "topK"},
		{"negative word limit", func(c *PipelineConfig) { c.Budget.WordLimit = -5 }, "wordLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPipelineConfig_ZeroVariantsAllowed(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Expand.VariantCount = 0
	assert.NoError(t, cfg.Validate())
}
