package di

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"rag-assistant/internal/adapter/inference"
	"rag-assistant/internal/adapter/llm"
	rag_http "rag-assistant/internal/adapter/rag_http"
	"rag-assistant/internal/adapter/repository"
	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/config"
	"rag-assistant/internal/infra/httpclient"
	"rag-assistant/internal/infra/settings"
	"rag-assistant/internal/usecase"
	"rag-assistant/internal/usecase/retrieval"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Settings   *settings.Store
	Store      domain.VectorStore
	TxManager  domain.TransactionManager
	Encoders   domain.EncoderProvider
	Reranker   domain.Reranker
	LLMFactory domain.LLMClientFactory

	AnswerUsecase usecase.AnswerQuestionUsecase
	SearchUsecase usecase.SearchDocumentsUsecase
	IngestUsecase usecase.IngestDocumentsUsecase

	Handler *rag_http.Handler
}

// PipelineConfigFrom maps environment configuration onto stage parameters.
func PipelineConfigFrom(cfg *config.Config) usecase.PipelineConfig {
	return usecase.PipelineConfig{
		Expand: retrieval.ExpandConfig{
			VariantCount: cfg.RAG.VariantCount,
			MaxTokens:    cfg.RAG.ExpansionMaxTokens,
			Timeout:      cfg.LLM.Timeout,
		},
		Fanout: retrieval.FanoutConfig{
			PerQueryLimit: cfg.RAG.PerQueryLimit,
			Concurrency:   cfg.RAG.FanoutConcurrency,
			CallTimeout:   cfg.RAG.CallTimeout,
		},
		Rerank: retrieval.RerankConfig{
			TopK:    cfg.RAG.TopK,
			Timeout: cfg.Rerank.Timeout,
		},
		Budget: retrieval.BudgetConfig{
			WordLimit: cfg.RAG.WordLimit,
		},
		Synthesize: retrieval.SynthesizeConfig{
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
		},
	}
}

// LLMFactoryConfigFrom maps provider configuration onto the factory.
func LLMFactoryConfigFrom(cfg config.LLMConfig) llm.FactoryConfig {
	return llm.FactoryConfig{
		Ollama:          llm.Endpoint{URL: cfg.Ollama.URL, Model: cfg.Ollama.Model},
		OpenAI:          llm.Endpoint{URL: cfg.OpenAI.URL, Model: cfg.OpenAI.Model, APIKey: cfg.OpenAI.APIKey},
		Gemini:          llm.Endpoint{URL: cfg.Gemini.URL, Model: cfg.Gemini.Model, APIKey: cfg.Gemini.APIKey},
		Streaming:       llm.Endpoint{URL: cfg.Streaming.URL, Model: cfg.Streaming.Model, APIKey: cfg.Streaming.APIKey},
		StreamFieldPath: cfg.Streaming.FieldPath,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	}
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	settingsStore, err := settings.NewStore(cfg.InitialSettings())
	if err != nil {
		return nil, err
	}

	pipelineCfg := PipelineConfigFrom(cfg)
	if err := pipelineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	// Repositories
	store := repository.NewDocumentStore(pool, domain.NewContentHashPolicy())
	txManager := repository.NewPostgresTransactionManager(pool)

	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(cfg.Embedder.Timeout)
	rerankHTTP := httpclient.NewPooledClient(cfg.Rerank.Timeout)
	llmHTTP := httpclient.NewPooledClient(cfg.LLM.Timeout)

	// External clients
	encoders := inference.NewEncoderRegistry(cfg.Embedder.URL, embedderHTTP, cfg.Embedder.CacheSize, cfg.Embedder.CacheTTL, log)
	reranker := inference.NewRerankerClient(cfg.Rerank.URL, cfg.Rerank.Model, cfg.Rerank.Timeout, log, rerankHTTP)
	llmFactory := llm.NewFactory(LLMFactoryConfigFrom(cfg.LLM), llmHTTP, log)

	cleaner := domain.NewTextCleaner()

	// Usecases
	answerUsecase := usecase.NewAnswerQuestionUsecase(
		settingsStore,
		encoders,
		store,
		reranker,
		llmFactory,
		retrieval.NewPlainPromptBuilder(),
		pipelineCfg,
		log,
	)
	searchUsecase := usecase.NewSearchDocumentsUsecase(settingsStore, encoders, store, cleaner, log)
	ingestUsecase := usecase.NewIngestDocumentsUsecase(settingsStore, encoders, store, txManager, cleaner, log)

	updateUsecase := usecase.NewUpdateSettingsUsecase(settingsStore, encoders, store, log)

	handler := rag_http.NewHandler(answerUsecase, searchUsecase, ingestUsecase, updateUsecase, settingsStore, pool, log)

	return &ApplicationComponents{
		Settings:      settingsStore,
		Store:         store,
		TxManager:     txManager,
		Encoders:      encoders,
		Reranker:      reranker,
		LLMFactory:    llmFactory,
		AnswerUsecase: answerUsecase,
		SearchUsecase: searchUsecase,
		IngestUsecase: ingestUsecase,
		Handler:       handler,
	}, nil
}
