package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"rag-assistant/internal/domain"
)

const generationTemperature = 0.0

// Endpoint is the process-wide configuration of one provider kind.
type Endpoint struct {
	URL    string
	Model  string
	APIKey string
}

// FactoryConfig holds every provider endpoint plus the hosted-call limit.
type FactoryConfig struct {
	Ollama          Endpoint
	OpenAI          Endpoint
	Gemini          Endpoint
	Streaming       Endpoint
	StreamFieldPath string

	// Requests per second across all hosted providers. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Factory builds an LLMClient for a provider selection.
type Factory struct {
	cfg     FactoryConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewFactory(cfg FactoryConfig, client *http.Client, logger *slog.Logger) *Factory {
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return &Factory{cfg: cfg, client: client, limiter: limiter, logger: logger}
}

// New resolves model and credentials for spec. Hosted providers fail with
// ErrConfiguration when neither the request nor the environment carries a key.
func (f *Factory) New(spec domain.ProviderSpec) (domain.LLMClient, error) {
	model := strings.TrimSpace(spec.Model)
	kind, err := domain.ParseProviderKind(string(spec.Kind))
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.ProviderLocal:
		if model == "" {
			model = f.cfg.Ollama.Model
		}
		if model == "" {
			return nil, fmt.Errorf("%w: ollama model name is required", domain.ErrConfiguration)
		}
		return NewOllamaClient(f.cfg.Ollama.URL, model, f.client), nil

	case domain.ProviderHostedChat:
		key, err := resolveKey(spec.APIKey, f.cfg.OpenAI.APIKey, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = f.cfg.OpenAI.Model
		}
		return f.limited(NewOpenAIClient(f.cfg.OpenAI.URL, model, key, f.client)), nil

	case domain.ProviderHostedGenerative:
		key, err := resolveKey(spec.APIKey, f.cfg.Gemini.APIKey, "GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		if model == "" {
			model = f.cfg.Gemini.Model
		}
		return f.limited(NewGeminiClient(f.cfg.Gemini.URL, model, key, f.client)), nil

	case domain.ProviderCustomStreaming:
		if f.cfg.Streaming.URL == "" {
			return nil, fmt.Errorf("%w: streaming provider URL is not configured", domain.ErrConfiguration)
		}
		if model == "" {
			model = f.cfg.Streaming.Model
		}
		key := spec.APIKey
		if key == "" {
			key = f.cfg.Streaming.APIKey
		}
		return f.limited(NewStreamingClient(f.cfg.Streaming.URL, model, key, f.cfg.StreamFieldPath, f.client, f.logger)), nil
	}

	return nil, fmt.Errorf("%w: unsupported provider %q", domain.ErrConfiguration, kind)
}

func resolveKey(requestKey, envKey, envName string) (string, error) {
	if k := strings.TrimSpace(requestKey); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(envKey); k != "" {
		return k, nil
	}
	return "", fmt.Errorf("%w: no API key supplied and %s is not set", domain.ErrConfiguration, envName)
}

func (f *Factory) limited(inner domain.LLMClient) domain.LLMClient {
	if f.limiter == nil {
		return inner
	}
	return &rateLimitedClient{inner: inner, limiter: f.limiter}
}

// rateLimitedClient waits for a token from the shared limiter before each call.
type rateLimitedClient struct {
	inner   domain.LLMClient
	limiter *rate.Limiter
}

func (c *rateLimitedClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrBackendInvocation, err)
	}
	return c.inner.Generate(ctx, prompt, maxTokens)
}

func (c *rateLimitedClient) Version() string {
	return c.inner.Version()
}

var _ domain.LLMClientFactory = (*Factory)(nil)
