package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/metrics"
)

// IngestDocumentsInput is one batch of documents to index.
type IngestDocumentsInput struct {
	Documents []domain.Document
}

// IngestDocumentsOutput reports what happened to the batch.
type IngestDocumentsOutput struct {
	Received int
	Inserted int64
	// Skipped counts empty documents plus content already stored.
	Skipped        int64
	EmbeddingModel string
}

// IngestDocumentsUsecase cleans, embeds and stores documents.
type IngestDocumentsUsecase interface {
	Execute(ctx context.Context, input IngestDocumentsInput) (*IngestDocumentsOutput, error)
}

type ingestDocumentsUsecase struct {
	settings  domain.SettingsStore
	encoders  domain.EncoderProvider
	store     domain.VectorStore
	txManager domain.TransactionManager
	cleaner   *domain.TextCleaner
	logger    *slog.Logger
}

func NewIngestDocumentsUsecase(
	settings domain.SettingsStore,
	encoders domain.EncoderProvider,
	store domain.VectorStore,
	txManager domain.TransactionManager,
	cleaner *domain.TextCleaner,
	logger *slog.Logger,
) IngestDocumentsUsecase {
	return &ingestDocumentsUsecase{
		settings:  settings,
		encoders:  encoders,
		store:     store,
		txManager: txManager,
		cleaner:   cleaner,
		logger:    logger,
	}
}

func (u *ingestDocumentsUsecase) Execute(ctx context.Context, input IngestDocumentsInput) (*IngestDocumentsOutput, error) {
	start := time.Now()
	settings := u.settings.Current()

	docs := u.prepare(input.Documents)
	out := &IngestDocumentsOutput{
		Received:       len(input.Documents),
		Skipped:        int64(len(input.Documents) - len(docs)),
		EmbeddingModel: settings.EmbeddingModel,
	}
	if len(docs) == 0 {
		metrics.RecordIngest(0, out.Skipped)
		return out, nil
	}

	encoder, err := u.encoders.EncoderFor(settings.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encoder: %w", err)
	}

	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	vectors, err := encoder.Encode(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrBackendInvocation, len(docs), len(vectors))
	}

	var inserted int64
	err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.store.EnsureCollection(ctx, len(vectors[0])); err != nil {
			return fmt.Errorf("failed to ensure collection: %w", err)
		}
		n, err := u.store.Insert(ctx, docs, vectors)
		if err != nil {
			return fmt.Errorf("failed to insert documents: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		u.logger.Error("ingest_failed",
			slog.Int("document_count", len(docs)),
			slog.String("error", err.Error()))
		return nil, err
	}

	out.Inserted = inserted
	out.Skipped += int64(len(docs)) - inserted
	metrics.RecordIngest(out.Inserted, out.Skipped)

	u.logger.Info("ingest_completed",
		slog.Int("received", out.Received),
		slog.Int64("inserted", out.Inserted),
		slog.Int64("skipped", out.Skipped),
		slog.String("embedding_model", settings.EmbeddingModel),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return out, nil
}

// prepare cleans each document and drops those left empty. Untitled
// documents are named after their 1-based position in the batch.
func (u *ingestDocumentsUsecase) prepare(in []domain.Document) []domain.Document {
	docs := make([]domain.Document, 0, len(in))
	for i, d := range in {
		content := u.cleaner.Clean(d.Content)
		if content == "" {
			continue
		}
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}
		docs = append(docs, domain.Document{
			Title:          title,
			Content:        content,
			SourceLocation: strings.TrimSpace(d.SourceLocation),
		})
	}
	return docs
}
