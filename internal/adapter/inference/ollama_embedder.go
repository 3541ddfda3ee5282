package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rag-assistant/internal/domain"
)

// OllamaEmbedder calls Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

// NewOllamaEmbedder constructs an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string, client *http.Client, logger *slog.Logger) *OllamaEmbedder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OllamaEmbedder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Encode returns one embedding per text, in input order.
func (e *OllamaEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()

	jsonData, err := json.Marshal(embedRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		e.logger.Error("embed_failed",
			slog.String("model", e.Model),
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("%w: failed to call embedder: %w", domain.ErrBackendInvocation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		e.logger.Error("embed_bad_status",
			slog.String("model", e.Model),
			slog.Int("status", resp.StatusCode),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("%w: embedder returned %d: %s", domain.ErrBackendInvocation, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("%w: failed to decode embedder response: %w", domain.ErrBackendInvocation, err)
	}
	if len(respBody.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts",
			domain.ErrBackendInvocation, len(respBody.Embeddings), len(texts))
	}

	e.logger.Debug("embed_completed",
		slog.String("model", e.Model),
		slog.Int("embedding_count", len(respBody.Embeddings)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return respBody.Embeddings, nil
}

func (e *OllamaEmbedder) Version() string {
	return e.Model
}

var _ domain.VectorEncoder = (*OllamaEmbedder)(nil)
