package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"rag-assistant/internal/domain"
)

const defaultSearchLimit = 5

type SearchDocumentsInput struct {
	Query string
	Limit int
}

type SearchDocumentsOutput struct {
	Hits   []domain.SearchHit
	Metric domain.Metric
}

// SearchDocumentsUsecase runs a single vector search with the active settings.
type SearchDocumentsUsecase interface {
	Execute(ctx context.Context, input SearchDocumentsInput) (*SearchDocumentsOutput, error)
}

type searchDocumentsUsecase struct {
	settings domain.SettingsStore
	encoders domain.EncoderProvider
	store    domain.VectorStore
	cleaner  *domain.TextCleaner
	logger   *slog.Logger
}

func NewSearchDocumentsUsecase(
	settings domain.SettingsStore,
	encoders domain.EncoderProvider,
	store domain.VectorStore,
	cleaner *domain.TextCleaner,
	logger *slog.Logger,
) SearchDocumentsUsecase {
	return &searchDocumentsUsecase{
		settings: settings,
		encoders: encoders,
		store:    store,
		cleaner:  cleaner,
		logger:   logger,
	}
}

func (u *searchDocumentsUsecase) Execute(ctx context.Context, input SearchDocumentsInput) (*SearchDocumentsOutput, error) {
	query := u.cleaner.Clean(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	settings := u.settings.Current()

	encoder, err := u.encoders.EncoderFor(settings.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encoder: %w", err)
	}

	vectors, err := encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", domain.ErrBackendInvocation, len(vectors))
	}

	hits, err := u.store.Search(ctx, vectors[0], settings.Metric, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	u.logger.Info("documents_searched",
		slog.String("metric", string(settings.Metric)),
		slog.Int("limit", limit),
		slog.Int("result_count", len(hits)))

	return &SearchDocumentsOutput{Hits: hits, Metric: settings.Metric}, nil
}
