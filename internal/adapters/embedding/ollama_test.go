package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

func TestOllamaAdapter_Embed(t *testing.T) {
	// Mock Ollama server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model", 3, nil)
	vectors, err := adapter.Embed(context.Background(), entities.Credential{}, []string{"hello"})

	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, vectors[0].Dimensions())
	assert.Equal(t, 3, adapter.Dimensions())
}

func TestOllamaAdapter_EmbedBatchKeepsOrder(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := callCount.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float32{float32(n)},
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model", 0, nil)
	results, err := adapter.Embed(context.Background(), entities.Credential{}, []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, entities.Vector{1}, results[0])
	assert.Equal(t, entities.Vector{3}, results[2])
}

func TestOllamaAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test", 0, nil)
	_, err := adapter.Embed(context.Background(), entities.Credential{}, []string{"test"})

	require.ErrorIs(t, err, entities.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "500")
}

func TestOllamaAdapter_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewOllamaAdapter(url, "test", 0, nil).Embed(context.Background(), entities.Credential{}, []string{"x"})
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
}

func TestOllamaAdapter_DefaultValues(t *testing.T) {
	adapter := NewOllamaAdapter("", "", 0, nil)
	assert.Equal(t, "http://localhost:11434", adapter.baseURL)
	assert.Equal(t, "nomic-embed-text", adapter.model)
	assert.Equal(t, "ollama:nomic-embed-text", adapter.Name())
}
