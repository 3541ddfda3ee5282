package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"rag-assistant/internal/domain"
)

// dimensionSample is encoded to learn the vector width of a new embedding model.
const dimensionSample = "dimension check"

// UpdateSettingsUsecase publishes a new settings snapshot. An embedding model
// change is rejected when its vectors do not fit the stored collection.
type UpdateSettingsUsecase interface {
	Execute(ctx context.Context, next domain.RetrievalSettings) (domain.RetrievalSettings, error)
}

type updateSettingsUsecase struct {
	settings domain.SettingsStore
	encoders domain.EncoderProvider
	store    domain.VectorStore
	logger   *slog.Logger
}

func NewUpdateSettingsUsecase(
	settings domain.SettingsStore,
	encoders domain.EncoderProvider,
	store domain.VectorStore,
	logger *slog.Logger,
) UpdateSettingsUsecase {
	return &updateSettingsUsecase{
		settings: settings,
		encoders: encoders,
		store:    store,
		logger:   logger,
	}
}

func (u *updateSettingsUsecase) Execute(ctx context.Context, next domain.RetrievalSettings) (domain.RetrievalSettings, error) {
	canonical, err := next.Normalize()
	if err != nil {
		return domain.RetrievalSettings{}, err
	}

	if canonical.EmbeddingModel != u.settings.Current().EmbeddingModel {
		if err := u.checkDimension(ctx, canonical.EmbeddingModel); err != nil {
			return domain.RetrievalSettings{}, err
		}
	}

	if err := u.settings.Replace(canonical); err != nil {
		return domain.RetrievalSettings{}, err
	}
	return u.settings.Current(), nil
}

func (u *updateSettingsUsecase) checkDimension(ctx context.Context, model string) error {
	stored, err := u.store.Dimension(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collection dimension: %w", err)
	}
	if stored == 0 {
		return nil
	}

	encoder, err := u.encoders.EncoderFor(model)
	if err != nil {
		return fmt.Errorf("failed to resolve encoder: %w", err)
	}
	vectors, err := encoder.Encode(ctx, []string{dimensionSample})
	if err != nil {
		return fmt.Errorf("failed to encode with %s: %w", model, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("%w: expected 1 embedding, got %d", domain.ErrBackendInvocation, len(vectors))
	}

	if got := len(vectors[0]); got != stored {
		u.logger.Warn("embedding_model_rejected",
			slog.String("embedding_model", model),
			slog.Int("model_dimension", got),
			slog.Int("collection_dimension", stored))
		return fmt.Errorf("%w: embedding model %s produces %d-dimensional vectors but the collection stores %d",
			domain.ErrConfiguration, model, got, stored)
	}
	return nil
}
