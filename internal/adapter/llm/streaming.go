package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"rag-assistant/internal/domain"
)

const (
	sseDataPrefix  = "data:"
	sseDoneMarker  = "[DONE]"
	maxSSELineSize = 1 << 20
)

// DefaultStreamFieldPath extracts the delta text of OpenAI-style chunks.
const DefaultStreamFieldPath = "choices.0.delta.content"

type streamingRequest struct {
	Model       string          `json:"model,omitempty"`
	Messages    []ollamaMessage `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// StreamingClient reads a server-sent event response and concatenates the
// text found at FieldPath in every data chunk.
type StreamingClient struct {
	URL       string
	Model     string
	FieldPath string
	apiKey    string
	Client    *http.Client
	logger    *slog.Logger
}

func NewStreamingClient(url, model, apiKey, fieldPath string, client *http.Client, logger *slog.Logger) *StreamingClient {
	if fieldPath == "" {
		fieldPath = DefaultStreamFieldPath
	}
	return &StreamingClient{
		URL:       url,
		Model:     model,
		FieldPath: fieldPath,
		apiKey:    apiKey,
		Client:    client,
		logger:    logger,
	}
}

// Generate posts the prompt and accumulates the streamed increments.
// Chunks that are not JSON or lack the field are skipped. If data arrived
// but no chunk parsed, the call fails with ErrMalformedStream.
func (c *StreamingClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	jsonPayload, err := json.Marshal(streamingRequest{
		Model:       c.Model,
		Messages:    []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:      true,
		Temperature: generationTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal streaming request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call streaming endpoint: %w", domain.ErrBackendInvocation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: streaming endpoint returned %d: %s", domain.ErrBackendInvocation, resp.StatusCode, string(body))
	}

	return c.accumulate(resp.Body)
}

func (c *StreamingClient) accumulate(body io.Reader) (*domain.LLMResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)

	var (
		sb       strings.Builder
		seen     int
		parsed   int
		skipped  int
		finished bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if payload == "" {
			continue
		}
		if payload == sseDoneMarker {
			finished = true
			break
		}
		seen++

		if !gjson.Valid(payload) {
			skipped++
			c.logger.Warn("stream_chunk_skipped",
				slog.String("reason", "invalid_json"),
				slog.String("payload", truncate(payload, 200)))
			continue
		}
		parsed++

		field := gjson.Get(payload, c.FieldPath)
		if !field.Exists() {
			c.logger.Debug("stream_chunk_without_field", slog.String("field_path", c.FieldPath))
			continue
		}
		sb.WriteString(field.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read stream: %w", domain.ErrBackendInvocation, err)
	}

	if seen > 0 && parsed == 0 {
		return nil, fmt.Errorf("%w: %w: %d data chunks, none parseable",
			domain.ErrBackendInvocation, domain.ErrMalformedStream, seen)
	}
	if skipped > 0 {
		c.logger.Warn("stream_completed_with_skips",
			slog.Int("chunks", seen),
			slog.Int("skipped", skipped))
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(sb.String()),
		Done: finished,
	}, nil
}

func (c *StreamingClient) Version() string {
	return c.Model
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

var _ domain.LLMClient = (*StreamingClient)(nil)
