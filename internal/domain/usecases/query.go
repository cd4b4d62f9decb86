package usecases

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// retrieveContext embeds the theme and returns its nearest indexed fragments.
// The query text is the trimmed theme itself.
func retrieveContext(
	ctx context.Context,
	embedder ports.Embedder,
	index ports.SimilarityIndex,
	cred entities.Credential,
	theme string,
	topK int,
) ([]entities.Neighbor, error) {
	vectors, err := embedder.Embed(ctx, cred, []string{theme})
	if err != nil {
		return nil, classify(err, entities.ErrEmbeddingService)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", entities.ErrEmbeddingService, len(vectors))
	}
	return index.Query(ctx, vectors[0], topK)
}

// neighborTexts keeps the ranked order.
func neighborTexts(neighbors []entities.Neighbor) []string {
	texts := make([]string, len(neighbors))
	for i, n := range neighbors {
		texts[i] = n.Text
	}
	return texts
}
