package domain

import "context"

// RerankCandidate is a merged search hit submitted for cross-encoder scoring.
type RerankCandidate struct {
	// ID maps the scored result back to its document row.
	ID int64
	// Content is paired with the original query when scoring.
	Content string
	// Score is the retrieval score the candidate arrived with.
	Score float64
}

// RerankResult carries the pairwise relevance score for one candidate.
type RerankResult struct {
	ID    int64
	Score float64
}

// Reranker scores (query, passage) pairs with a cross-encoder model.
type Reranker interface {
	// Rerank returns one result per candidate. Order is not significant;
	// callers sort by Score.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
