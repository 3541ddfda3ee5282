package domain_test

import (
	"testing"

	"rag-assistant/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalSettings_Validate(t *testing.T) {
	valid := domain.RetrievalSettings{
		EmbeddingModel: "all-minilm",
		Metric:         domain.MetricCosine,
		Provider:       domain.ProviderLocal,
	}
	require.NoError(t, valid.Validate())

	t.Run("empty embedding model", func(t *testing.T) {
		s := valid
		s.EmbeddingModel = " "
		assert.ErrorIs(t, s.Validate(), domain.ErrConfiguration)
	})

	t.Run("unknown metric", func(t *testing.T) {
		s := valid
		s.Metric = "hamming"
		assert.ErrorIs(t, s.Validate(), domain.ErrConfiguration)
	})

	t.Run("unknown provider", func(t *testing.T) {
		s := valid
		s.Provider = "anthropic"
		err := s.Validate()
		assert.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Contains(t, err.Error(), "ollama, openai, gemini, streaming")
	})
}

func TestParseProviderKind(t *testing.T) {
	kind, err := domain.ParseProviderKind(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderHostedChat, kind)
}

func TestRetrievalSettings_Normalize(t *testing.T) {
	got, err := domain.RetrievalSettings{
		EmbeddingModel: " all-minilm ",
		Metric:         "L2",
		Provider:       " Gemini",
		Model:          " gemini-1.5-pro ",
	}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, domain.RetrievalSettings{
		EmbeddingModel: "all-minilm",
		Metric:         domain.MetricL2,
		Provider:       domain.ProviderHostedGenerative,
		Model:          "gemini-1.5-pro",
	}, got)
}
