package retrieval

import (
	"rag-assistant/internal/domain"
)

// StageContext carries data between pipeline stages.
type StageContext struct {
	// Input
	RetrievalID string
	Query       string
	Settings    domain.RetrievalSettings

	// Stage 1 outputs: index 0 is always Query.
	Queries []string

	// Stage 2 outputs, one entry per phrasing in Queries order.
	Phrasings []PhrasingResult

	// Stage 3 outputs
	Candidates map[int64]domain.SearchHit

	// Stage 4 outputs
	Ranked []domain.RankedDocument

	// Stage 5 outputs
	Prompt string
}

// PhrasingResult is the search outcome for one phrasing. Exactly one of
// Hits or Err is meaningful.
type PhrasingResult struct {
	Index int
	Query string
	Hits  []domain.SearchHit
	Err   error
}

// Succeeded reports whether the phrasing produced a hit list.
func (p PhrasingResult) Succeeded() bool {
	return p.Err == nil
}

// SuccessfulHitLists returns the hit lists of every successful phrasing,
// preserving phrasing order.
func (sc *StageContext) SuccessfulHitLists() [][]domain.SearchHit {
	lists := make([][]domain.SearchHit, 0, len(sc.Phrasings))
	for _, p := range sc.Phrasings {
		if p.Succeeded() {
			lists = append(lists, p.Hits)
		}
	}
	return lists
}
