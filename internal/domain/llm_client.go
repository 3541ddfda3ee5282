package domain

import "context"

// LLMClient defines the capability to send prompts to an LLM and receive textual responses.
// A maxTokens of zero leaves the limit to the provider.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}

// ProviderSpec selects and configures one LLM backend for a request.
type ProviderSpec struct {
	Kind   ProviderKind
	Model  string
	APIKey string
}

// LLMClientFactory builds a client for a provider selection. Credential
// problems are reported here, before any network call.
type LLMClientFactory interface {
	New(spec ProviderSpec) (LLMClient, error)
}
