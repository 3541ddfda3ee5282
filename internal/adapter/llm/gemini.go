package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rag-assistant/internal/domain"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	BaseURL string
	Model   string
	apiKey  string
	Client  *http.Client
}

func NewGeminiClient(baseURL, model, apiKey string, client *http.Client) *GeminiClient {
	return &GeminiClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		apiKey:  apiKey,
		Client:  client,
	}
}

// Generate concatenates the text parts of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     generationTemperature,
			MaxOutputTokens: maxTokens,
		},
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, url.PathEscape(c.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call gemini: %w", domain.ErrBackendInvocation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: gemini returned %d: %s", domain.ErrBackendInvocation, resp.StatusCode, string(body))
	}

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode gemini response: %w", domain.ErrBackendInvocation, err)
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", domain.ErrBackendInvocation)
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(sb.String()),
		Done: genResp.Candidates[0].FinishReason == "STOP",
	}, nil
}

func (c *GeminiClient) Version() string {
	return c.Model
}

var _ domain.LLMClient = (*GeminiClient)(nil)
