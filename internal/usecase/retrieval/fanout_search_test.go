package retrieval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func cosineSettings() domain.RetrievalSettings {
	return domain.RetrievalSettings{EmbeddingModel: "all-minilm", Metric: domain.MetricCosine, Provider: domain.ProviderLocal}
}

func fanoutConfig() retrieval.FanoutConfig {
	return retrieval.FanoutConfig{PerQueryLimit: 5, Concurrency: 4, CallTimeout: time.Second}
}

func TestFanoutSearch_AllPhrasingsSucceed(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)

	encoder.On("Encode", mock.Anything, []string{"q0"}).Return([][]float32{{0.0}}, nil)
	encoder.On("Encode", mock.Anything, []string{"q1"}).Return([][]float32{{1.0}}, nil)
	store.On("Search", mock.Anything, []float32{0.0}, domain.MetricCosine, 5).Return([]domain.SearchHit{hit(1, 0.9)}, nil)
	store.On("Search", mock.Anything, []float32{1.0}, domain.MetricCosine, 5).Return([]domain.SearchHit{hit(2, 0.7)}, nil)

	sc := &retrieval.StageContext{RetrievalID: "fan-1", Queries: []string{"q0", "q1"}, Settings: cosineSettings()}
	err := retrieval.FanoutSearch(context.Background(), sc, encoder, store, fanoutConfig(), discardLogger())

	require.NoError(t, err)
	require.Len(t, sc.Phrasings, 2)
	assert.Equal(t, "q0", sc.Phrasings[0].Query)
	assert.Equal(t, int64(1), sc.Phrasings[0].Hits[0].ID)
	assert.Equal(t, "q1", sc.Phrasings[1].Query)
	assert.Equal(t, int64(2), sc.Phrasings[1].Hits[0].ID)
	encoder.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestFanoutSearch_PartialFailureProceeds(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)

	encoder.On("Encode", mock.Anything, []string{"q0"}).Return([][]float32{{0.0}}, nil)
	encoder.On("Encode", mock.Anything, []string{"q1"}).Return(nil, errors.New("embedder down"))
	encoder.On("Encode", mock.Anything, []string{"q2"}).Return([][]float32{{2.0}}, nil)
	store.On("Search", mock.Anything, []float32{0.0}, domain.MetricCosine, 5).Return([]domain.SearchHit{hit(1, 0.9)}, nil)
	store.On("Search", mock.Anything, []float32{2.0}, domain.MetricCosine, 5).Return(nil, errors.New("store timeout"))

	sc := &retrieval.StageContext{RetrievalID: "fan-2", Queries: []string{"q0", "q1", "q2"}, Settings: cosineSettings()}
	err := retrieval.FanoutSearch(context.Background(), sc, encoder, store, fanoutConfig(), discardLogger())

	require.NoError(t, err)
	assert.True(t, sc.Phrasings[0].Succeeded())
	assert.False(t, sc.Phrasings[1].Succeeded())
	assert.False(t, sc.Phrasings[2].Succeeded())
	assert.Len(t, sc.SuccessfulHitLists(), 1)
}

func TestFanoutSearch_AllFail(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, errors.New("embedder down"))

	sc := &retrieval.StageContext{RetrievalID: "fan-3", Queries: []string{"q0", "q1"}, Settings: cosineSettings()}
	err := retrieval.FanoutSearch(context.Background(), sc, encoder, store, fanoutConfig(), discardLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoPhrasingSucceeded)
	assert.Contains(t, err.Error(), "phrasing 0")
	assert.Contains(t, err.Error(), "phrasing 1")
	store.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFanoutSearch_EmptyEncoderResult(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{}, nil)

	sc := &retrieval.StageContext{RetrievalID: "fan-4", Queries: []string{"q0"}, Settings: cosineSettings()}
	err := retrieval.FanoutSearch(context.Background(), sc, encoder, store, fanoutConfig(), discardLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendInvocation)
}

func TestFanoutSearch_ParentCancellation(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := &retrieval.StageContext{RetrievalID: "fan-5", Queries: []string{"q0", "q1"}, Settings: cosineSettings()}
	err := retrieval.FanoutSearch(ctx, sc, encoder, store, fanoutConfig(), discardLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}

func TestFanoutSearch_PerCallTimeout(t *testing.T) {
	encoder := new(MockVectorEncoder)
	store := new(MockVectorStore)

	encoder.On("Encode", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	cfg := fanoutConfig()
	cfg.CallTimeout = 20 * time.Millisecond

	sc := &retrieval.StageContext{RetrievalID: "fan-6", Queries: []string{"q0"}, Settings: cosineSettings()}
	err := retrieval.FanoutSearch(context.Background(), sc, encoder, store, cfg, discardLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
