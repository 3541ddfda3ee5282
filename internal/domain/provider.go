package domain

import (
	"fmt"
	"strings"
)

// ProviderKind enumerates the supported answer-generation backends.
type ProviderKind string

const (
	// ProviderLocal is a locally hosted Ollama model.
	ProviderLocal ProviderKind = "ollama"
	// ProviderHostedChat is an OpenAI-compatible chat completion API.
	ProviderHostedChat ProviderKind = "openai"
	// ProviderHostedGenerative is the Gemini generateContent API.
	ProviderHostedGenerative ProviderKind = "gemini"
	// ProviderCustomStreaming is any endpoint that answers with server-sent events.
	ProviderCustomStreaming ProviderKind = "streaming"
)

// ProviderKinds lists every supported kind in display order.
var ProviderKinds = []ProviderKind{
	ProviderLocal,
	ProviderHostedChat,
	ProviderHostedGenerative,
	ProviderCustomStreaming,
}

// ParseProviderKind maps a user-supplied name onto a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, error) {
	kind := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range ProviderKinds {
		if k == kind {
			return k, nil
		}
	}
	names := make([]string, len(ProviderKinds))
	for i, k := range ProviderKinds {
		names[i] = string(k)
	}
	return "", fmt.Errorf("%w: unsupported provider %q, choose from: %s",
		ErrConfiguration, s, strings.Join(names, ", "))
}
