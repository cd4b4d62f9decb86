package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

func seededIndex(t *testing.T, texts ...string) *mockIndex {
	t.Helper()
	idx := &mockIndex{}
	entries := make([]entities.IndexEntry, len(texts))
	for i, text := range texts {
		entries[i] = entities.IndexEntry{Text: text, Vector: keywordVector(text)}
	}
	require.NoError(t, idx.Build(context.Background(), entries))
	return idx
}

func TestRetrieveContext_NearestFirst(t *testing.T) {
	idx := seededIndex(t, "city lights", "nature nature nature", "sea and nature")
	embedder := &mockEmbedder{}

	got, err := retrieveContext(context.Background(), embedder, idx, entities.NewCredential("k"), "nature", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sea and nature", got[0].Text)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
	assert.Equal(t, 1, embedder.callCount())
}

func TestRetrieveContext_KLargerThanIndex(t *testing.T) {
	idx := seededIndex(t, "nature", "sea")

	got, err := retrieveContext(context.Background(), &mockEmbedder{}, idx, entities.NewCredential("k"), "nature", 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRetrieveContext_EmbedFailure(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func([]string) ([]entities.Vector, error) {
		return nil, errors.New("quota exceeded")
	}}

	_, err := retrieveContext(context.Background(), embedder, seededIndex(t, "x"), entities.NewCredential("k"), "nature", 5)
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
}

func TestRetrieveContext_QueryDimensionMismatch(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func([]string) ([]entities.Vector, error) {
		return []entities.Vector{{1, 2}}, nil
	}}

	_, err := retrieveContext(context.Background(), embedder, seededIndex(t, "nature"), entities.NewCredential("k"), "nature", 5)
	require.ErrorIs(t, err, entities.ErrDimensionMismatch)
}

func TestNeighborTexts_KeepsOrder(t *testing.T) {
	got := neighborTexts([]entities.Neighbor{{Text: "b", Distance: 0.1}, {Text: "a", Distance: 0.2}})
	assert.Equal(t, []string{"b", "a"}, got)
	assert.Empty(t, neighborTexts(nil))
}
