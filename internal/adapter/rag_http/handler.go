package rag_http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"rag-assistant/internal/domain"
	"rag-assistant/internal/usecase"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	answerUsecase usecase.AnswerQuestionUsecase
	searchUsecase usecase.SearchDocumentsUsecase
	ingestUsecase usecase.IngestDocumentsUsecase
	updateUsecase usecase.UpdateSettingsUsecase
	settings      domain.SettingsStore
	db            Pinger
	logger        *slog.Logger
}

func NewHandler(
	answerUsecase usecase.AnswerQuestionUsecase,
	searchUsecase usecase.SearchDocumentsUsecase,
	ingestUsecase usecase.IngestDocumentsUsecase,
	updateUsecase usecase.UpdateSettingsUsecase,
	settings domain.SettingsStore,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		answerUsecase: answerUsecase,
		searchUsecase: searchUsecase,
		ingestUsecase: ingestUsecase,
		updateUsecase: updateUsecase,
		settings:      settings,
		db:            db,
		logger:        logger,
	}
}

// RegisterRoutes mounts every API route on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/rag/answer", h.AnswerQuestion)
	e.POST("/prompt", h.Prompt)
	e.POST("/v1/search", h.SearchDocuments)
	e.POST("/v1/documents", h.AddDocuments)
	e.GET("/v1/settings", h.GetSettings)
	e.PUT("/v1/settings", h.UpdateSettings)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

// Answer a question using the retrieval pipeline
// (POST /v1/rag/answer)
func (h *Handler) AnswerQuestion(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	out, err := h.answerUsecase.Execute(c.Request().Context(), usecase.AnswerQuestionInput{
		Query:    req.Query,
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		return h.errorJSON(c, err)
	}

	docs := make([]RankedDocumentResponse, 0, len(out.Documents))
	for _, d := range out.Documents {
		docs = append(docs, RankedDocumentResponse{
			ID:          d.ID,
			Title:       d.Title,
			Content:     d.Content,
			Similarity:  d.Similarity,
			RerankScore: d.RerankScore,
		})
	}

	return c.JSON(http.StatusOK, AnswerResponse{
		Answer:      out.Answer,
		Documents:   docs,
		RetrievalID: out.RetrievalID,
		Queries:     out.Queries,
		Metric:      string(out.Metric),
		Provider:    string(out.Provider),
		Model:       out.Model,
	})
}

// Legacy answer route
// (POST /prompt)
func (h *Handler) Prompt(c echo.Context) error {
	var req PromptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	out, err := h.answerUsecase.Execute(c.Request().Context(), usecase.AnswerQuestionInput{
		Query:    req.Prompt,
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		return h.errorJSON(c, err)
	}

	field := metricScoreField(out.Metric)
	docs := make([]map[string]any, 0, len(out.Documents))
	for _, d := range out.Documents {
		docs = append(docs, map[string]any{
			"id":      d.ID,
			"title":   d.Title,
			"content": d.Content,
			field:     rankedScoreValue(out.Metric, d),
		})
	}
	return c.JSON(http.StatusOK, PromptResponse{Answer: out.Answer, Docs: docs})
}

// Vector search with the active metric
// (POST /v1/search)
func (h *Handler) SearchDocuments(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	out, err := h.searchUsecase.Execute(c.Request().Context(), usecase.SearchDocumentsInput{Query: req.Query, Limit: req.Limit})
	if err != nil {
		return h.errorJSON(c, err)
	}

	field := metricScoreField(out.Metric)
	results := make([]map[string]any, 0, len(out.Hits))
	for _, hit := range out.Hits {
		results = append(results, map[string]any{
			"id":      hit.ID,
			"title":   hit.Title,
			"content": hit.Content,
			field:     metricScoreValue(out.Metric, hit),
		})
	}

	return c.JSON(http.StatusOK, SearchResponse{
		Results:      results,
		MetricUsed:   string(out.Metric),
		TotalResults: len(results),
	})
}

// Add documents to the collection
// (POST /v1/documents)
func (h *Handler) AddDocuments(c echo.Context) error {
	var req AddDocumentsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	docs := make([]domain.Document, 0, len(req.Contents)+len(req.Documents))
	for _, content := range req.Contents {
		docs = append(docs, domain.Document{Content: content})
	}
	for _, d := range req.Documents {
		docs = append(docs, domain.Document{Title: d.Title, Content: d.Content, SourceLocation: d.SourceLocation})
	}
	if len(docs) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "contents or documents required"})
	}

	out, err := h.ingestUsecase.Execute(c.Request().Context(), usecase.IngestDocumentsInput{Documents: docs})
	if err != nil {
		return h.errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, AddDocumentsResponse{
		Status:         "success",
		Received:       out.Received,
		Inserted:       out.Inserted,
		Skipped:        out.Skipped,
		EmbeddingModel: out.EmbeddingModel,
	})
}

// (GET /v1/settings)
func (h *Handler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, SettingsResponse{Status: "success", Settings: h.settings.Current()})
}

// Replace the active settings snapshot
// (PUT /v1/settings)
func (h *Handler) UpdateSettings(c echo.Context) error {
	var patch SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}

	next := applySettingsPatch(h.settings.Current(), patch)
	current, err := h.updateUsecase.Execute(c.Request().Context(), next)
	if err != nil {
		return h.errorJSON(c, err)
	}

	h.logger.Info("settings_updated",
		slog.String("embedding_model", current.EmbeddingModel),
		slog.String("metric", string(current.Metric)),
		slog.String("provider", string(current.Provider)),
		slog.String("model", current.Model))
	return c.JSON(http.StatusOK, SettingsResponse{Status: "success", Settings: current})
}

func applySettingsPatch(s domain.RetrievalSettings, p SettingsPatch) domain.RetrievalSettings {
	if p.EmbeddingModel != nil {
		s.EmbeddingModel = strings.TrimSpace(*p.EmbeddingModel)
	}
	if p.Metric != nil {
		s.Metric = domain.Metric(strings.ToLower(strings.TrimSpace(*p.Metric)))
	}
	if p.Provider != nil {
		s.Provider = domain.ProviderKind(strings.ToLower(strings.TrimSpace(*p.Provider)))
		// A model name belongs to its provider.
		if p.Model == nil {
			s.Model = ""
		}
	}
	if p.Model != nil {
		s.Model = strings.TrimSpace(*p.Model)
	}
	return s
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(c echo.Context) error {
	if err := h.db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// errorJSON maps caller mistakes to 400 and everything else to 500.
func (h *Handler) errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrConfiguration) || errors.Is(err, domain.ErrEmptyQuery) {
		status = http.StatusBadRequest
	}
	h.logger.Error("request_failed",
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	return c.JSON(status, errorResponse{Error: err.Error()})
}
