package rag_http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rag-assistant/internal/adapter/rag_http"
	"rag-assistant/internal/domain"
	"rag-assistant/internal/infra/settings"
	"rag-assistant/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnswerUsecase struct {
	got usecase.AnswerQuestionInput
	out *usecase.AnswerQuestionOutput
	err error
}

func (s *stubAnswerUsecase) Execute(_ context.Context, input usecase.AnswerQuestionInput) (*usecase.AnswerQuestionOutput, error) {
	s.got = input
	return s.out, s.err
}

type stubSearchUsecase struct {
	out *usecase.SearchDocumentsOutput
	err error
}

func (s *stubSearchUsecase) Execute(_ context.Context, _ usecase.SearchDocumentsInput) (*usecase.SearchDocumentsOutput, error) {
	return s.out, s.err
}

type stubIngestUsecase struct {
	got usecase.IngestDocumentsInput
	out *usecase.IngestDocumentsOutput
	err error
}

func (s *stubIngestUsecase) Execute(_ context.Context, input usecase.IngestDocumentsInput) (*usecase.IngestDocumentsOutput, error) {
	s.got = input
	return s.out, s.err
}

type stubPinger struct{ err error }

// stubEncoders hands out encoders whose vectors have the width configured per model.
type stubEncoders map[string]int

func (s stubEncoders) EncoderFor(model string) (domain.VectorEncoder, error) {
	width, ok := s[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown embedding model %s", domain.ErrConfiguration, model)
	}
	return stubEncoder(width), nil
}

type stubEncoder int

func (e stubEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, int(e))
	}
	return out, nil
}

func (e stubEncoder) Version() string { return "stub" }

// stubCollection reports a fixed collection width; only Dimension is exercised.
type stubCollection struct {
	domain.VectorStore
	dim int
}

func (s stubCollection) Dimension(context.Context) (int, error) { return s.dim, nil }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testDeps struct {
	answer   *stubAnswerUsecase
	search   *stubSearchUsecase
	ingest   *stubIngestUsecase
	settings *settings.Store
	encoders stubEncoders
	stored   int
	pinger   stubPinger
	cfg      rag_http.ServerConfig
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	st, err := settings.NewStore(domain.RetrievalSettings{
		EmbeddingModel: "all-minilm",
		Metric:         domain.MetricCosine,
		Provider:       domain.ProviderLocal,
	})
	require.NoError(t, err)
	return &testDeps{
		answer:   &stubAnswerUsecase{},
		search:   &stubSearchUsecase{},
		ingest:   &stubIngestUsecase{},
		settings: st,
		encoders: stubEncoders{"all-minilm": 384, "bge-small": 384, "nomic-embed-text": 768},
	}
}

func (d *testDeps) server(t *testing.T) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	update := usecase.NewUpdateSettingsUsecase(d.settings, d.encoders, stubCollection{dim: d.stored}, logger)
	h := rag_http.NewHandler(d.answer, d.search, d.ingest, update, d.settings, d.pinger, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	e, err := rag_http.NewServer(ctx, h, d.cfg, logger)
	require.NoError(t, err)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AnswerQuestion(t *testing.T) {
	d := newTestDeps(t)
	d.answer.out = &usecase.AnswerQuestionOutput{
		Answer: "Paris.",
		Documents: []domain.RankedDocument{
			{ID: 42, Title: "France", Content: "Paris is the capital of France.", Similarity: 91, RerankScore: 3.2},
		},
		RetrievalID: "r-1",
		Queries:     []string{"What is the capital of France?", "Name the capital city of France"},
		Metric:      domain.MetricCosine,
		Provider:    domain.ProviderHostedChat,
		Model:       "gpt-4o-mini",
	}

	rec := do(d.server(t), http.MethodPost, "/v1/rag/answer",
		`{"query":"What is the capital of France?","provider":"openai","apiKey":"sk-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "What is the capital of France?", d.answer.got.Query)
	assert.Equal(t, "openai", d.answer.got.Provider)
	assert.Equal(t, "sk-1", d.answer.got.APIKey)

	var resp rag_http.AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paris.", resp.Answer)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, int64(42), resp.Documents[0].ID)
	assert.Equal(t, 3.2, resp.Documents[0].RerankScore)
	assert.Equal(t, "r-1", resp.RetrievalID)
	assert.Equal(t, "cosine", resp.Metric)
	assert.Equal(t, "openai", resp.Provider)
}

func TestHandler_AnswerQuestion_ValidationErrors(t *testing.T) {
	d := newTestDeps(t)
	e := d.server(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{"provider":"ollama"}`},
		{"empty query", `{"query":""}`},
		{"unknown provider", `{"query":"q","provider":"claude"}`},
		{"wrong type", `{"query":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/v1/rag/answer", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid request")
		})
	}
}

func TestHandler_AnswerQuestion_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing credential", fmt.Errorf("failed to build llm client: %w", domain.ErrConfiguration), http.StatusBadRequest},
		{"blank after trim", domain.ErrEmptyQuery, http.StatusBadRequest},
		{"backend down", fmt.Errorf("failed to rerank candidates: %w", domain.ErrBackendInvocation), http.StatusInternalServerError},
		{"no phrasing", domain.ErrNoPhrasingSucceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps(t)
			d.answer.err = tt.err

			rec := do(d.server(t), http.MethodPost, "/v1/rag/answer", `{"query":"q"}`)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestHandler_Prompt_LegacyShape(t *testing.T) {
	d := newTestDeps(t)
	d.answer.out = &usecase.AnswerQuestionOutput{
		Answer:    "ok",
		Documents: []domain.RankedDocument{{ID: 7, Title: "t", Content: "c", Similarity: 88.5, RerankScore: 1}},
		Metric:    domain.MetricCosine,
	}

	rec := do(d.server(t), http.MethodPost, "/prompt", `{"prompt":"hello","model":"llama3"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hello", d.answer.got.Query)
	assert.Equal(t, "llama3", d.answer.got.Model)
	assert.JSONEq(t, `{"answer":"ok","docs":[{"id":7,"title":"t","content":"c","similarity_percent":88.5}]}`, rec.Body.String())
}

func TestHandler_Prompt_MetricSpecificField(t *testing.T) {
	tests := []struct {
		metric     domain.Metric
		similarity float64
		want       string
	}{
		{domain.MetricL2, -0.5, `{"answer":"ok","docs":[{"id":3,"title":"t","content":"c","l2_distance":0.5}]}`},
		{domain.MetricInnerProduct, 0.75, `{"answer":"ok","docs":[{"id":3,"title":"t","content":"c","inner_product_score":0.75}]}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			d := newTestDeps(t)
			d.answer.out = &usecase.AnswerQuestionOutput{
				Answer:    "ok",
				Documents: []domain.RankedDocument{{ID: 3, Title: "t", Content: "c", Similarity: tt.similarity}},
				Metric:    tt.metric,
			}

			rec := do(d.server(t), http.MethodPost, "/prompt", `{"prompt":"hello"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "similarity_percent")
		})
	}
}

func TestHandler_SearchDocuments_MetricSpecificField(t *testing.T) {
	tests := []struct {
		metric domain.Metric
		hit    domain.SearchHit
		want   string
	}{
		{domain.MetricCosine, domain.SearchHit{ID: 1, Title: "a", Content: "b", Score: 87.66, Distance: 0.1234}, `"similarity_percent":87.66`},
		{domain.MetricL2, domain.SearchHit{ID: 1, Title: "a", Content: "b", Score: -0.5, Distance: 0.5}, `"l2_distance":0.5`},
		{domain.MetricInnerProduct, domain.SearchHit{ID: 1, Title: "a", Content: "b", Score: 0.75, Distance: -0.75}, `"inner_product_score":0.75`},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			d := newTestDeps(t)
			d.search.out = &usecase.SearchDocumentsOutput{Hits: []domain.SearchHit{tt.hit}, Metric: tt.metric}

			rec := do(d.server(t), http.MethodPost, "/v1/search", `{"query":"vectors","limit":3}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), `"metric_used":"`+string(tt.metric)+`"`)
			assert.Contains(t, rec.Body.String(), `"total_results":1`)
		})
	}
}

func TestHandler_SearchDocuments_LimitOutOfRange(t *testing.T) {
	d := newTestDeps(t)
	rec := do(d.server(t), http.MethodPost, "/v1/search", `{"query":"q","limit":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AddDocuments(t *testing.T) {
	d := newTestDeps(t)
	d.ingest.out = &usecase.IngestDocumentsOutput{Received: 2, Inserted: 2, EmbeddingModel: "all-minilm"}

	rec := do(d.server(t), http.MethodPost, "/v1/documents",
		`{"contents":["first"],"documents":[{"title":"T","content":"second","sourceLocation":"https://x"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []domain.Document{
		{Content: "first"},
		{Title: "T", Content: "second", SourceLocation: "https://x"},
	}, d.ingest.got.Documents)
	assert.JSONEq(t, `{"status":"success","received":2,"inserted":2,"skipped":0,"embedding_model":"all-minilm"}`, rec.Body.String())
}

func TestHandler_AddDocuments_Empty(t *testing.T) {
	d := newTestDeps(t)
	rec := do(d.server(t), http.MethodPost, "/v1/documents", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Settings(t *testing.T) {
	d := newTestDeps(t)
	e := d.server(t)

	rec := do(e, http.MethodGet, "/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","settings":{"embeddingModel":"all-minilm","metric":"cosine","llmProvider":"ollama"}}`, rec.Body.String())

	rec = do(e, http.MethodPut, "/v1/settings", `{"metric":"l2","llmProvider":"gemini","model":"gemini-1.5-pro"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.RetrievalSettings{
		EmbeddingModel: "all-minilm",
		Metric:         domain.MetricL2,
		Provider:       domain.ProviderHostedGenerative,
		Model:          "gemini-1.5-pro",
	}, d.settings.Current())

	// Switching provider without a model drops the old provider's model.
	rec = do(e, http.MethodPut, "/v1/settings", `{"llmProvider":"ollama"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, d.settings.Current().Model)
}

func TestHandler_Settings_InvalidKeepsSnapshot(t *testing.T) {
	d := newTestDeps(t)
	e := d.server(t)
	before := d.settings.Current()

	rec := do(e, http.MethodPut, "/v1/settings", `{"metric":"hamming"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPut, "/v1/settings", `{"embeddingModel":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, before, d.settings.Current())
}

func TestHandler_Settings_EmbeddingModelMustMatchCollection(t *testing.T) {
	d := newTestDeps(t)
	d.stored = 384
	e := d.server(t)

	rec := do(e, http.MethodPut, "/v1/settings", `{"embeddingModel":"nomic-embed-text"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "768-dimensional")
	assert.Equal(t, "all-minilm", d.settings.Current().EmbeddingModel)

	rec = do(e, http.MethodPut, "/v1/settings", `{"embeddingModel":"bge-small"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bge-small", d.settings.Current().EmbeddingModel)
}

func TestHandler_Settings_AnyEmbeddingModelBeforeFirstIngest(t *testing.T) {
	d := newTestDeps(t)
	e := d.server(t)

	rec := do(e, http.MethodPut, "/v1/settings", `{"embeddingModel":"nomic-embed-text"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "nomic-embed-text", d.settings.Current().EmbeddingModel)
}

func TestHandler_Health(t *testing.T) {
	d := newTestDeps(t)
	rec := do(d.server(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(d.server(t), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	d.pinger = stubPinger{err: errors.New("connection refused")}
	rec = do(d.server(t), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestHandler_Metrics(t *testing.T) {
	d := newTestDeps(t)
	rec := do(d.server(t), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandler_RateLimit(t *testing.T) {
	d := newTestDeps(t)
	d.cfg.RateLimitRPS = 0.01
	d.cfg.RateLimitBurst = 2
	e := d.server(t)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHandler_CORSPreflight(t *testing.T) {
	d := newTestDeps(t)
	e := d.server(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/rag/answer", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
