package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"rag-assistant/internal/domain"
)

// DefaultCacheSize is the number of vectors kept when no size is configured.
const DefaultCacheSize = 1000

// CachedEncoder wraps a VectorEncoder with an expiring LRU keyed by model
// version and text. Repeated query phrasings skip the embedder round trip.
type CachedEncoder struct {
	inner domain.VectorEncoder
	cache *expirable.LRU[string, []float32]
}

// NewCachedEncoder wraps inner. A zero ttl keeps entries until evicted by size.
func NewCachedEncoder(inner domain.VectorEncoder, size int, ttl time.Duration) *CachedEncoder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &CachedEncoder{
		inner: inner,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *CachedEncoder) key(text string) string {
	return c.inner.Version() + "\x00" + text
}

// Encode serves cached vectors and sends only the misses to the inner
// encoder, in one batch.
func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		results[idx] = fresh[j]
		c.cache.Add(c.key(texts[idx]), fresh[j])
	}
	return results, nil
}

func (c *CachedEncoder) Version() string {
	return c.inner.Version()
}

// Len reports the number of cached vectors.
func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}

var _ domain.VectorEncoder = (*CachedEncoder)(nil)
