package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	rag_http "rag-assistant/internal/adapter/rag_http"
	"rag-assistant/internal/domain"
)

// APIClient talks to a running rag-assistant server.
type APIClient struct {
	BaseURL string
	Client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) AddDocuments(ctx context.Context, docs []rag_http.DocumentInput) (*rag_http.AddDocumentsResponse, error) {
	var out rag_http.AddDocumentsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/documents", rag_http.AddDocumentsRequest{Documents: docs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Answer(ctx context.Context, req rag_http.AnswerRequest) (*rag_http.AnswerResponse, error) {
	var out rag_http.AnswerResponse
	if err := c.do(ctx, http.MethodPost, "/v1/rag/answer", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Search(ctx context.Context, req rag_http.SearchRequest) (*rag_http.SearchResponse, error) {
	var out rag_http.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/v1/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetSettings(ctx context.Context) (domain.RetrievalSettings, error) {
	var out rag_http.SettingsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/settings", nil, &out); err != nil {
		return domain.RetrievalSettings{}, err
	}
	return out.Settings, nil
}

func (c *APIClient) UpdateSettings(ctx context.Context, patch rag_http.SettingsPatch) (domain.RetrievalSettings, error) {
	var out rag_http.SettingsResponse
	if err := c.do(ctx, http.MethodPut, "/v1/settings", patch, &out); err != nil {
		return domain.RetrievalSettings{}, err
	}
	return out.Settings, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
