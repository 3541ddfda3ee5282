package settings

import (
	"fmt"
	"sync/atomic"

	"rag-assistant/internal/domain"
)

// Store publishes RetrievalSettings as immutable snapshots. Readers never
// observe a partially applied update.
type Store struct {
	current atomic.Pointer[domain.RetrievalSettings]
}

// NewStore validates and publishes the initial snapshot.
func NewStore(initial domain.RetrievalSettings) (*Store, error) {
	s := &Store{}
	if err := s.Replace(initial); err != nil {
		return nil, fmt.Errorf("invalid initial settings: %w", err)
	}
	return s, nil
}

// Current returns a copy of the snapshot in effect.
func (s *Store) Current() domain.RetrievalSettings {
	return *s.current.Load()
}

// Replace validates next and swaps in its canonical form atomically. The
// previous snapshot stays in effect when validation fails.
func (s *Store) Replace(next domain.RetrievalSettings) error {
	snapshot, err := next.Normalize()
	if err != nil {
		return err
	}
	s.current.Store(&snapshot)
	return nil
}

var _ domain.SettingsStore = (*Store)(nil)
