package inference

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"rag-assistant/internal/adapter/cache"
	"rag-assistant/internal/domain"
)

// EncoderRegistry hands out one cached embedder per embedding model so a
// settings change takes effect on the next request without a restart.
type EncoderRegistry struct {
	baseURL   string
	client    *http.Client
	cacheSize int
	cacheTTL  time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	encoders map[string]domain.VectorEncoder
}

// NewEncoderRegistry creates a registry backed by the embedder at baseURL.
func NewEncoderRegistry(baseURL string, client *http.Client, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *EncoderRegistry {
	return &EncoderRegistry{
		baseURL:   baseURL,
		client:    client,
		cacheSize: cacheSize,
		cacheTTL:  cacheTTL,
		logger:    logger,
		encoders:  make(map[string]domain.VectorEncoder),
	}
}

// EncoderFor returns the encoder for model, building it on first use.
func (r *EncoderRegistry) EncoderFor(model string) (domain.VectorEncoder, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", domain.ErrConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if enc, ok := r.encoders[model]; ok {
		return enc, nil
	}

	enc := cache.NewCachedEncoder(NewOllamaEmbedder(r.baseURL, model, r.client, r.logger), r.cacheSize, r.cacheTTL)
	r.encoders[model] = enc
	r.logger.Info("encoder_registered", slog.String("model", model))
	return enc, nil
}

var _ domain.EncoderProvider = (*EncoderRegistry)(nil)
