package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"rag-assistant/internal/domain"

	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *MockLLMClient) Version() string {
	return "mock-llm"
}

type MockLLMFactory struct {
	mock.Mock
}

func (m *MockLLMFactory) New(spec domain.ProviderSpec) (domain.LLMClient, error) {
	args := m.Called(spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.LLMClient), args.Error(1)
}

type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string {
	return "mock-encoder"
}

type MockEncoderProvider struct {
	mock.Mock
}

func (m *MockEncoderProvider) EncoderFor(model string) (domain.VectorEncoder, error) {
	args := m.Called(model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.VectorEncoder), args.Error(1)
}

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) EnsureCollection(ctx context.Context, dimension int) error {
	return m.Called(ctx, dimension).Error(0)
}

func (m *MockVectorStore) Insert(ctx context.Context, docs []domain.Document, vectors [][]float32) (int64, error) {
	args := m.Called(ctx, docs, vectors)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, metric domain.Metric, limit int) ([]domain.SearchHit, error) {
	args := m.Called(ctx, vector, metric, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchHit), args.Error(1)
}

func (m *MockVectorStore) Dimension(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string {
	return "mock-cross-encoder"
}

type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}
