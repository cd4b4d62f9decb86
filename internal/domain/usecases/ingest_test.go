package usecases

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// mockEmbedder implements ports.Embedder for testing.
// Texts map to vectors by keyword so tests can reason about distances.
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	creds   []string
	dims    int
	embedFn func(texts []string) ([]entities.Vector, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, cred entities.Credential, texts []string) ([]entities.Vector, error) {
	m.mu.Lock()
	m.calls++
	m.creds = append(m.creds, cred.Reveal())
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(texts)
	}
	out := make([]entities.Vector, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// keywordVector scores a text on three axes: nature, sea, city.
func keywordVector(text string) entities.Vector {
	t := strings.ToLower(text)
	v := entities.Vector{0, 0, 0}
	for i, kw := range []string{"nature", "sea", "city"} {
		v[i] = float32(strings.Count(t, kw))
	}
	return v
}

// mockIndex implements ports.SimilarityIndex with a brute-force scan.
type mockIndex struct {
	entries []entities.IndexEntry
	closed  bool
	buildFn func(entries []entities.IndexEntry) error
}

func (m *mockIndex) Build(ctx context.Context, entries []entities.IndexEntry) error {
	if m.buildFn != nil {
		return m.buildFn(entries)
	}
	if len(entries) == 0 {
		return entities.ErrEmptyIndex
	}
	m.entries = append([]entities.IndexEntry(nil), entries...)
	return nil
}

func (m *mockIndex) Query(ctx context.Context, v entities.Vector, k int) ([]entities.Neighbor, error) {
	if len(m.entries) == 0 {
		return nil, entities.ErrEmptyIndex
	}
	out := make([]entities.Neighbor, 0, len(m.entries))
	for _, e := range m.entries {
		if len(e.Vector) != len(v) {
			return nil, entities.ErrDimensionMismatch
		}
		out = append(out, entities.Neighbor{Text: e.Text, Distance: entities.L2Distance(e.Vector, v)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (m *mockIndex) Metric() entities.Metric { return entities.MetricL2 }

func (m *mockIndex) Close() error {
	m.closed = true
	m.entries = nil
	return nil
}

// mockIndexes hands out mockIndex values and remembers them.
type mockIndexes struct {
	mu     sync.Mutex
	opened []*mockIndex
}

func (m *mockIndexes) Open(ctx context.Context) (ports.SimilarityIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := &mockIndex{}
	m.opened = append(m.opened, idx)
	return idx, nil
}

func (m *mockIndexes) Name() string { return "mock" }

func TestIndexFragments_OneEntryPerFragment(t *testing.T) {
	embedder := &mockEmbedder{dims: 3}
	index := &mockIndex{}
	fragments := []entities.PoemFragment{
		{Title: "a", Lines: []string{"nature calls", "softly"}},
		{Title: "b", Lines: []string{"the sea"}},
	}

	n, err := indexFragments(context.Background(), embedder, index, entities.NewCredential("k"), fragments)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, index.entries, 2)
	assert.Equal(t, "nature calls\nsoftly", index.entries[0].Text)
	assert.Equal(t, "the sea", index.entries[1].Text)
}

func TestIndexFragments_EmbedFailureIsEmbeddingError(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func([]string) ([]entities.Vector, error) {
		return nil, errors.New("401 unauthorized")
	}}
	index := &mockIndex{}

	_, err := indexFragments(context.Background(), embedder, index, entities.NewCredential("k"),
		[]entities.PoemFragment{{Lines: []string{"x"}}})
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "401")
	assert.Empty(t, index.entries)
}

func TestIndexFragments_ShortBatchIsEmbeddingError(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func([]string) ([]entities.Vector, error) {
		return []entities.Vector{{1, 2, 3}}, nil
	}}

	_, err := indexFragments(context.Background(), embedder, &mockIndex{}, entities.NewCredential("k"),
		[]entities.PoemFragment{{Lines: []string{"x"}}, {Lines: []string{"y"}}})
	require.ErrorIs(t, err, entities.ErrEmbeddingService)
}

func TestIndexFragments_DeclaredDimensionEnforced(t *testing.T) {
	embedder := &mockEmbedder{dims: 4}

	_, err := indexFragments(context.Background(), embedder, &mockIndex{}, entities.NewCredential("k"),
		[]entities.PoemFragment{{Lines: []string{"nature"}}})
	require.ErrorIs(t, err, entities.ErrDimensionMismatch)
}

func TestIndexFragments_EmptyFragmentsSurfaceEmptyIndex(t *testing.T) {
	_, err := indexFragments(context.Background(), &mockEmbedder{}, &mockIndex{}, entities.NewCredential("k"), nil)
	require.ErrorIs(t, err, entities.ErrEmptyIndex)
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	err := classify(entities.ErrDimensionMismatch, entities.ErrEmbeddingService)
	assert.ErrorIs(t, err, entities.ErrDimensionMismatch)
	assert.NotErrorIs(t, err, entities.ErrEmbeddingService)

	err = classify(errors.New("boom"), entities.ErrEmbeddingService)
	assert.ErrorIs(t, err, entities.ErrEmbeddingService)

	assert.NoError(t, classify(nil, entities.ErrEmbeddingService))
}
