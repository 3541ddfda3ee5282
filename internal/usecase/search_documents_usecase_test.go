package usecase_test

import (
	"context"
	"testing"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSearchDocuments_UsesActiveMetric(t *testing.T) {
	encoders := new(MockEncoderProvider)
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)
	uc := usecase.NewSearchDocumentsUsecase(newSettingsStore(t, domain.MetricL2), encoders, store, domain.NewTextCleaner(), discardLogger())

	encoders.On("EncoderFor", "all-minilm").Return(encoder, nil)
	encoder.On("Encode", mock.Anything, []string{"vector databases"}).Return([][]float32{{0.5, 0.5}}, nil)
	hits := []domain.SearchHit{{ID: 7, Title: "pgvector", Content: "...", Score: -0.25, Distance: 0.25}}
	store.On("Search", mock.Anything, []float32{0.5, 0.5}, domain.MetricL2, 5).Return(hits, nil)

	out, err := uc.Execute(context.Background(), usecase.SearchDocumentsInput{Query: "<em>vector</em> databases"})
	require.NoError(t, err)
	assert.Equal(t, domain.MetricL2, out.Metric)
	assert.Equal(t, hits, out.Hits)
}

func TestSearchDocuments_CustomLimit(t *testing.T) {
	encoders := new(MockEncoderProvider)
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)
	uc := usecase.NewSearchDocumentsUsecase(newSettingsStore(t, domain.MetricCosine), encoders, store, domain.NewTextCleaner(), discardLogger())

	encoders.On("EncoderFor", "all-minilm").Return(encoder, nil)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)
	store.On("Search", mock.Anything, mock.Anything, domain.MetricCosine, 12).Return([]domain.SearchHit{}, nil)

	out, err := uc.Execute(context.Background(), usecase.SearchDocumentsInput{Query: "q", Limit: 12})
	require.NoError(t, err)
	assert.Empty(t, out.Hits)
	store.AssertExpectations(t)
}

func TestSearchDocuments_EmptyAfterCleaning(t *testing.T) {
	uc := usecase.NewSearchDocumentsUsecase(newSettingsStore(t, domain.MetricCosine), new(MockEncoderProvider), new(MockVectorStore), domain.NewTextCleaner(), discardLogger())

	_, err := uc.Execute(context.Background(), usecase.SearchDocumentsInput{Query: "<br/>###"})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}
