package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/logger"
	"rag-assistant/internal/infra/metrics"
	"rag-assistant/internal/usecase/retrieval"
)

// AnswerQuestionInput selects the question and, optionally, a provider
// override for this request only.
type AnswerQuestionInput struct {
	Query    string
	Provider string
	Model    string
	APIKey   string
}

// AnswerQuestionOutput is the grounded answer plus the documents it cites.
type AnswerQuestionOutput struct {
	Answer      string
	Documents   []domain.RankedDocument
	RetrievalID string
	Queries     []string
	Metric      domain.Metric
	Provider    domain.ProviderKind
	Model       string
}

// AnswerQuestionUsecase runs the retrieval pipeline for one question.
type AnswerQuestionUsecase interface {
	Execute(ctx context.Context, input AnswerQuestionInput) (*AnswerQuestionOutput, error)
}

type answerQuestionUsecase struct {
	settings   domain.SettingsStore
	encoders   domain.EncoderProvider
	store      domain.VectorStore
	reranker   domain.Reranker
	llmFactory domain.LLMClientFactory
	prompt     retrieval.PromptBuilder
	cfg        PipelineConfig
	logger     *slog.Logger
}

// NewAnswerQuestionUsecase wires together the components needed to answer a question.
func NewAnswerQuestionUsecase(
	settings domain.SettingsStore,
	encoders domain.EncoderProvider,
	store domain.VectorStore,
	reranker domain.Reranker,
	llmFactory domain.LLMClientFactory,
	prompt retrieval.PromptBuilder,
	cfg PipelineConfig,
	logger *slog.Logger,
) AnswerQuestionUsecase {
	return &answerQuestionUsecase{
		settings:   settings,
		encoders:   encoders,
		store:      store,
		reranker:   reranker,
		llmFactory: llmFactory,
		prompt:     prompt,
		cfg:        cfg,
		logger:     logger,
	}
}

func (u *answerQuestionUsecase) Execute(ctx context.Context, input AnswerQuestionInput) (*AnswerQuestionOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	// One snapshot for the whole request.
	settings := u.settings.Current()

	kind := settings.Provider
	if strings.TrimSpace(input.Provider) != "" {
		parsed, err := domain.ParseProviderKind(input.Provider)
		if err != nil {
			metrics.RecordAnswer(input.Provider, "config_error")
			return nil, err
		}
		kind = parsed
	}
	model := input.Model
	if strings.TrimSpace(model) == "" && kind == settings.Provider {
		model = settings.Model
	}

	retrievalID := uuid.NewString()
	ctx = logger.WithRetrievalID(ctx, retrievalID)
	ctx = logger.WithProvider(ctx, string(kind))
	log := logger.FromContext(ctx, u.logger)

	llmClient, err := u.llmFactory.New(domain.ProviderSpec{Kind: kind, Model: model, APIKey: input.APIKey})
	if err != nil {
		metrics.RecordAnswer(string(kind), "config_error")
		log.Error("llm_client_unavailable", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to build llm client: %w", err)
	}

	encoder, err := u.encoders.EncoderFor(settings.EmbeddingModel)
	if err != nil {
		metrics.RecordAnswer(string(kind), "config_error")
		return nil, fmt.Errorf("failed to resolve encoder: %w", err)
	}

	start := time.Now()
	log.Info("answer_started",
		slog.String("embedding_model", settings.EmbeddingModel),
		slog.String("metric", string(settings.Metric)),
		slog.String("model", llmClient.Version()))

	sc := &retrieval.StageContext{
		RetrievalID: retrievalID,
		Query:       query,
		Settings:    settings,
	}

	answer, err := u.run(ctx, sc, encoder, llmClient, log)
	if err != nil {
		metrics.RecordAnswer(string(kind), "error")
		log.Error("answer_failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, err
	}

	metrics.RecordAnswer(string(kind), "success")
	log.Info("answer_completed",
		slog.Int("document_count", len(sc.Ranked)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return &AnswerQuestionOutput{
		Answer:      answer,
		Documents:   sc.Ranked,
		RetrievalID: retrievalID,
		Queries:     sc.Queries,
		Metric:      settings.Metric,
		Provider:    kind,
		Model:       llmClient.Version(),
	}, nil
}

// run executes the six stages strictly in order; only fan-out is concurrent.
func (u *answerQuestionUsecase) run(
	ctx context.Context,
	sc *retrieval.StageContext,
	encoder domain.VectorEncoder,
	llmClient domain.LLMClient,
	log *slog.Logger,
) (string, error) {
	if err := retrieval.ExpandQueries(ctx, sc, llmClient, u.cfg.Expand, log); err != nil {
		return "", err
	}
	if err := retrieval.FanoutSearch(ctx, sc, encoder, u.store, u.cfg.Fanout, log); err != nil {
		return "", err
	}
	retrieval.Merge(sc, log)
	if err := retrieval.Rerank(ctx, sc, u.reranker, u.cfg.Rerank, log); err != nil {
		return "", err
	}
	retrieval.AssembleContext(sc, u.prompt, u.cfg.Budget, log)
	return retrieval.Synthesize(ctx, sc, llmClient, u.cfg.Synthesize, log)
}
