package repository

import (
	"context"
	"fmt"
	"math"

	"rag-assistant/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

const (
	createExtensionQuery = `CREATE EXTENSION IF NOT EXISTS vector`

	createTableQueryTemplate = `CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	source_location TEXT,
	content_hash TEXT NOT NULL UNIQUE,
	embedding vector(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	insertDocumentQuery = `INSERT INTO documents (title, content, source_location, content_hash, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_hash) DO NOTHING`

	collectionDimensionQuery = `SELECT atttypmod FROM pg_attribute
WHERE attrelid = to_regclass('documents') AND attname = 'embedding' AND NOT attisdropped`

	searchQueryTemplate = `SELECT id, title, content, COALESCE(source_location, ''), embedding %[1]s $1 AS distance
FROM documents
ORDER BY embedding %[1]s $1
LIMIT $2`
)

// distanceOperators maps each metric to its pgvector operator.
var distanceOperators = map[domain.Metric]string{
	domain.MetricCosine:       "<=>",
	domain.MetricL2:           "<->",
	domain.MetricInnerProduct: "<#>",
}

// SearchQuery returns the SQL used for metric.
func SearchQuery(metric domain.Metric) (string, error) {
	op, ok := distanceOperators[metric]
	if !ok {
		return "", fmt.Errorf("%w: unsupported metric %q", domain.ErrConfiguration, metric)
	}
	return fmt.Sprintf(searchQueryTemplate, op), nil
}

// CreateTableQuery returns the DDL for a collection of the given dimension.
func CreateTableQuery(dimension int) string {
	return fmt.Sprintf(createTableQueryTemplate, dimension)
}

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type documentStore struct {
	pool   PgxPool
	hasher domain.ContentHashPolicy
}

// NewDocumentStore creates a pgvector-backed domain.VectorStore.
func NewDocumentStore(pool PgxPool, hasher domain.ContentHashPolicy) domain.VectorStore {
	return &documentStore{pool: pool, hasher: hasher}
}

func (s *documentStore) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *documentStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid embedding dimension %d", domain.ErrConfiguration, dimension)
	}
	exec := s.getExecutor(ctx)
	if _, err := exec.Exec(ctx, createExtensionQuery); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if _, err := exec.Exec(ctx, CreateTableQuery(dimension)); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (s *documentStore) Dimension(ctx context.Context) (int, error) {
	rows, err := s.getExecutor(ctx).Query(ctx, collectionDimensionQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	defer rows.Close()

	var dim int32
	if rows.Next() {
		if err := rows.Scan(&dim); err != nil {
			return 0, fmt.Errorf("failed to scan collection dimension: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	if dim < 0 {
		return 0, nil
	}
	return int(dim), nil
}

func (s *documentStore) Insert(ctx context.Context, docs []domain.Document, vectors [][]float32) (int64, error) {
	if len(docs) != len(vectors) {
		return 0, fmt.Errorf("document and vector counts differ: %d != %d", len(docs), len(vectors))
	}

	exec := s.getExecutor(ctx)
	var inserted int64
	for i, doc := range docs {
		var source *string
		if doc.SourceLocation != "" {
			source = &doc.SourceLocation
		}
		tag, err := exec.Exec(ctx, insertDocumentQuery,
			doc.Title,
			doc.Content,
			source,
			s.hasher.Compute(doc.Content),
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert document %d: %w", i, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (s *documentStore) Search(ctx context.Context, vector []float32, metric domain.Metric, limit int) ([]domain.SearchHit, error) {
	query, err := SearchQuery(metric)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: search limit must be positive, got %d", domain.ErrConfiguration, limit)
	}

	rows, err := s.getExecutor(ctx).Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var h domain.SearchHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Content, &h.SourceLocation, &h.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		h.Score = ScoreFromDistance(metric, h.Distance)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}
	return hits, nil
}

// ScoreFromDistance converts a pgvector operator result into a score where
// higher is more similar. Cosine becomes a similarity percent rounded to two
// decimals, l2 is negated, and the negative inner product is flipped back.
func ScoreFromDistance(metric domain.Metric, distance float64) float64 {
	if metric == domain.MetricCosine {
		return math.Round((1-distance)*100*100) / 100
	}
	return -distance
}
