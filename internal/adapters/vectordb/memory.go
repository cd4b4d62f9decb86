// Package vectordb provides SimilarityIndex adapters.
// Clean Architecture: adapters implementing ports.SimilarityIndex and
// ports.IndexProvider. Every index is scoped to a single pipeline run.
package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// InMemoryIndex is a brute-force in-memory index.
type InMemoryIndex struct {
	mu      sync.RWMutex
	metric  entities.Metric
	entries []entities.IndexEntry
	dims    int
}

// NewInMemoryIndex creates an empty index using metric.
func NewInMemoryIndex(metric entities.Metric) *InMemoryIndex {
	return &InMemoryIndex{metric: metric}
}

// Build replaces the contents with entries.
func (s *InMemoryIndex) Build(ctx context.Context, entries []entities.IndexEntry) error {
	dims, err := checkEntries(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]entities.IndexEntry(nil), entries...)
	s.dims = dims
	return nil
}

// Query scans every entry and returns the k nearest.
func (s *InMemoryIndex) Query(ctx context.Context, vector entities.Vector, k int) ([]entities.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := checkQuery(len(s.entries), s.dims, vector, k); err != nil {
		return nil, err
	}

	results := make([]entities.Neighbor, len(s.entries))
	for i, e := range s.entries {
		results[i] = entities.Neighbor{Text: e.Text, Distance: s.metric.Distance(vector, e.Vector)}
	}
	return nearest(results, k), nil
}

func (s *InMemoryIndex) Metric() entities.Metric { return s.metric }

// Close drops the entries.
func (s *InMemoryIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.dims = 0
	return nil
}

// MemoryProvider opens InMemoryIndex values.
type MemoryProvider struct {
	metric entities.Metric
}

// NewMemoryProvider creates a provider for the given metric.
func NewMemoryProvider(metric entities.Metric) *MemoryProvider {
	return &MemoryProvider{metric: metric}
}

func (p *MemoryProvider) Open(ctx context.Context) (ports.SimilarityIndex, error) {
	return NewInMemoryIndex(p.metric), nil
}

func (p *MemoryProvider) Name() string { return "memory" }

// checkEntries rejects empty or mixed-dimension input and returns the
// common dimension.
func checkEntries(entries []entities.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: build called with no entries", entities.ErrEmptyIndex)
	}
	dims := entries[0].Vector.Dimensions()
	if dims == 0 {
		return 0, fmt.Errorf("%w: entry 0 has no dimensions", entities.ErrDimensionMismatch)
	}
	for i, e := range entries[1:] {
		if e.Vector.Dimensions() != dims {
			return 0, fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				entities.ErrDimensionMismatch, i+1, e.Vector.Dimensions(), dims)
		}
	}
	return dims, nil
}

// checkQuery validates a query against an index of n entries of size dims.
func checkQuery(n, dims int, vector entities.Vector, k int) error {
	if n == 0 {
		return fmt.Errorf("%w: query before build", entities.ErrEmptyIndex)
	}
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", entities.ErrInvalidInput, k)
	}
	if vector.Dimensions() != dims {
		return fmt.Errorf("%w: query has %d dimensions, index has %d",
			entities.ErrDimensionMismatch, vector.Dimensions(), dims)
	}
	return nil
}

// nearest sorts by ascending distance, keeping insertion order on ties, and
// keeps the first k.
func nearest(results []entities.Neighbor, k int) []entities.Neighbor {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
