package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

func TestOpenAIAdapter_EmbedSendsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-abc", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"one", "two"}, req.Input)
		assert.Equal(t, 2, req.Dimensions)

		// out of order on purpose
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL+"/v1/", "m", 2, nil)
	vectors, err := adapter.Embed(context.Background(), entities.NewCredential("sk-abc"), []string{"one", "two"})

	require.NoError(t, err)
	assert.Equal(t, []entities.Vector{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAIAdapter_AuthErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := NewOpenAIAdapter(server.URL, "m", 0, nil).Embed(context.Background(), entities.NewCredential("sk-bad"), []string{"x"})

	require.ErrorIs(t, err, entities.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Incorrect API key")
	assert.NotContains(t, err.Error(), "sk-bad")
}

func TestOpenAIAdapter_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	_, err := NewOpenAIAdapter(server.URL, "m", 0, nil).Embed(context.Background(), entities.NewCredential("k"), []string{"a", "b"})
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
}

func TestOpenAIAdapter_RejectsDuplicateIndices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]},{"index":0,"embedding":[0,1]}]}`))
	}))
	defer server.Close()

	vectors, err := NewOpenAIAdapter(server.URL, "m", 0, nil).Embed(context.Background(), entities.NewCredential("k"), []string{"a", "b"})
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
	assert.Nil(t, vectors)
}

func TestOpenAIAdapter_Defaults(t *testing.T) {
	a := NewOpenAIAdapter("", "", 0, nil)
	assert.Equal(t, "https://api.openai.com/v1", a.baseURL)
	assert.Equal(t, "openai:text-embedding-3-small", a.Name())
	assert.Zero(t, a.Dimensions())
}

func TestHashingAdapter_Deterministic(t *testing.T) {
	a := NewHashingAdapter(64)
	first, err := a.Embed(context.Background(), entities.Credential{}, []string{"The quiet sea", "city at night"})
	require.NoError(t, err)
	second, err := a.Embed(context.Background(), entities.Credential{}, []string{"The quiet sea", "city at night"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, 64, first[0].Dimensions())
	assert.InDelta(t, 0.0, entities.CosineDistance(first[0], second[0]), 1e-6)
}

func TestHashingAdapter_SharedWordsAreCloser(t *testing.T) {
	a := NewHashingAdapter(0)
	vs, err := a.Embed(context.Background(), entities.Credential{}, []string{"nature", "nature and rain", "traffic jam downtown"})
	require.NoError(t, err)

	near := entities.CosineDistance(vs[0], vs[1])
	far := entities.CosineDistance(vs[0], vs[2])
	assert.Less(t, near, far)
	assert.Equal(t, DefaultHashingDimensions, a.Dimensions())
}

func TestHashingAdapter_EmptyTextIsZeroVector(t *testing.T) {
	vs, err := NewHashingAdapter(8).Embed(context.Background(), entities.Credential{}, []string{"a !"})
	require.NoError(t, err)
	assert.Equal(t, make(entities.Vector, 8), vs[0])
}

func TestGenAIAdapter_RequiresCredential(t *testing.T) {
	a := NewGenAIAdapter("", "", 0, nil)
	_, err := a.Embed(context.Background(), entities.Credential{}, []string{"x"})
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
	assert.Equal(t, "genai:gemini-embedding-001", a.Name())
}
