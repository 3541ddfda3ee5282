package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"rag-assistant/internal/domain"
)

// OpenAIClient calls an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	model  string
	client openai.Client
}

// NewOpenAIClient builds a chat client. Retries are left to the caller.
func NewOpenAIClient(baseURL, model, apiKey string, httpClient *http.Client) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIClient{
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(generationTemperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai chat completion: %w", domain.ErrBackendInvocation, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", domain.ErrBackendInvocation)
	}

	choice := completion.Choices[0]
	return &domain.LLMResponse{
		Text: strings.TrimSpace(choice.Message.Content),
		Done: choice.FinishReason == "stop",
	}, nil
}

func (c *OpenAIClient) Version() string {
	return c.model
}

var _ domain.LLMClient = (*OpenAIClient)(nil)
