package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rag-assistant/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedder_Encode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, []string{"first", "second"}, req.Input)

		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}}})
	}))
	defer server.Close()

	enc := NewOllamaEmbedder(server.URL+"/", "all-minilm", server.Client(), testLogger())

	vecs, err := enc.Encode(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
	assert.Equal(t, "all-minilm", enc.Version())
}

func TestOllamaEmbedder_Encode_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	defer server.Close()

	enc := NewOllamaEmbedder(server.URL, "all-minilm", server.Client(), testLogger())

	_, err := enc.Encode(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendInvocation)
}

func TestOllamaEmbedder_Encode_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model \"nope\" not found", http.StatusNotFound)
	}))
	defer server.Close()

	enc := NewOllamaEmbedder(server.URL, "nope", server.Client(), testLogger())

	_, err := enc.Encode(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendInvocation)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedder_Encode_Empty(t *testing.T) {
	enc := NewOllamaEmbedder("http://127.0.0.1:1", "all-minilm", nil, testLogger())

	vecs, err := enc.Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEncoderRegistry_ReusesEncoderPerModel(t *testing.T) {
	reg := NewEncoderRegistry("http://127.0.0.1:1", nil, 10, 0, testLogger())

	a, err := reg.EncoderFor("all-minilm")
	require.NoError(t, err)
	b, err := reg.EncoderFor(" all-minilm ")
	require.NoError(t, err)
	c, err := reg.EncoderFor("nomic-embed-text")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "nomic-embed-text", c.Version())
}

func TestEncoderRegistry_EmptyModel(t *testing.T) {
	reg := NewEncoderRegistry("http://127.0.0.1:1", nil, 10, 0, testLogger())

	_, err := reg.EncoderFor("  ")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
