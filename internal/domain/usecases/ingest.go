// Package usecases contains application business rules.
// Usecases orchestrate entities through port interfaces; adapters are injected.
package usecases

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// indexFragments embeds every fragment and builds the run's index from them.
// The index receives exactly one entry per fragment.
func indexFragments(
	ctx context.Context,
	embedder ports.Embedder,
	index ports.SimilarityIndex,
	cred entities.Credential,
	fragments []entities.PoemFragment,
) (int, error) {
	// 1. Extract text for embedding
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text()
	}

	// 2. Generate embeddings via port
	vectors, err := embedder.Embed(ctx, cred, texts)
	if err != nil {
		return 0, classify(err, entities.ErrEmbeddingService)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: %d vectors for %d texts", entities.ErrEmbeddingService, len(vectors), len(texts))
	}

	// 3. Pair texts with vectors, checking the declared dimension
	want := embedder.Dimensions()
	entries := make([]entities.IndexEntry, len(texts))
	for i := range texts {
		if want > 0 && vectors[i].Dimensions() != want {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, model declares %d",
				entities.ErrDimensionMismatch, i, vectors[i].Dimensions(), want)
		}
		entries[i] = entities.IndexEntry{Text: texts[i], Vector: vectors[i]}
	}

	// 4. Build the index
	if err := index.Build(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// classify wraps err with kind unless it already carries a domain kind.
func classify(err, kind error) error {
	if err == nil {
		return nil
	}
	if entities.ErrorCode(err) != "INTERNAL_ERROR" {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
