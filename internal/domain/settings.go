package domain

import (
	"fmt"
	"strings"
)

// RetrievalSettings is the process-wide retrieval configuration. Values
// are immutable once published; a change replaces the whole snapshot.
type RetrievalSettings struct {
	EmbeddingModel string       `json:"embeddingModel"`
	Metric         Metric       `json:"metric"`
	Provider       ProviderKind `json:"llmProvider"`
	Model          string       `json:"model,omitempty"`
}

// Validate checks every field of the snapshot.
func (s RetrievalSettings) Validate() error {
	_, err := s.Normalize()
	return err
}

// Normalize returns the snapshot with canonical metric and provider values
// and trimmed model names. Consumers compare those values verbatim.
func (s RetrievalSettings) Normalize() (RetrievalSettings, error) {
	out := RetrievalSettings{
		EmbeddingModel: strings.TrimSpace(s.EmbeddingModel),
		Model:          strings.TrimSpace(s.Model),
	}
	if out.EmbeddingModel == "" {
		return RetrievalSettings{}, fmt.Errorf("%w: embedding model must not be empty", ErrConfiguration)
	}
	metric, err := ParseMetric(string(s.Metric))
	if err != nil {
		return RetrievalSettings{}, err
	}
	provider, err := ParseProviderKind(string(s.Provider))
	if err != nil {
		return RetrievalSettings{}, err
	}
	out.Metric = metric
	out.Provider = provider
	return out, nil
}

// SettingsStore publishes and reads RetrievalSettings snapshots.
type SettingsStore interface {
	// Current returns the snapshot in effect at call time.
	Current() RetrievalSettings
	// Replace validates and atomically publishes a new snapshot.
	Replace(s RetrievalSettings) error
}
