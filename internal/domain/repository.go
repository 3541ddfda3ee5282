package domain

import (
	"context"
	"fmt"
	"strings"
)

// Metric is the vector distance used for similarity search.
type Metric string

const (
	MetricCosine       Metric = "cosine"
	MetricL2           Metric = "l2"
	MetricInnerProduct Metric = "inner_product"
)

// ParseMetric maps a metric name, in any case, onto a Metric.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricCosine, MetricL2, MetricInnerProduct:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unsupported metric %q", ErrConfiguration, s)
	}
}

// Document is a passage submitted for indexing.
type Document struct {
	Title          string
	Content        string
	SourceLocation string
}

// SearchHit is one row returned by a similarity search.
//
// Score is normalized so that higher always means more similar: the
// similarity percent for cosine, the negated distance for l2, and the
// inner product for inner_product. Distance is the raw operator value
// reported by the store.
type SearchHit struct {
	ID             int64
	Title          string
	Content        string
	SourceLocation string
	Score          float64
	Distance       float64
}

// RankedDocument is a search hit after cross-encoder reranking.
type RankedDocument struct {
	ID          int64
	Title       string
	Content     string
	Similarity  float64
	RerankScore float64
}

// VectorStore persists documents with their embeddings and answers
// nearest-neighbour queries.
type VectorStore interface {
	// EnsureCollection creates the backing table when it does not exist.
	EnsureCollection(ctx context.Context, dimension int) error

	// Insert stores documents alongside their vectors. Documents whose
	// content fingerprint is already stored are skipped. Returns the
	// number of rows written.
	Insert(ctx context.Context, docs []Document, vectors [][]float32) (int64, error)

	// Search returns at most limit hits ordered best first.
	Search(ctx context.Context, vector []float32, metric Metric, limit int) ([]SearchHit, error)

	// Dimension reports the vector width of the existing collection, or 0
	// when no collection has been created yet.
	Dimension(ctx context.Context) (int, error)
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	// RunInTx executes the given function within a transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
