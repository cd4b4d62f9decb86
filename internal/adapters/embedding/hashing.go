package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// DefaultHashingDimensions is used when no size is configured.
const DefaultHashingDimensions = 256

// HashingAdapter is an offline ports.Embedder. Words and bigrams are hashed
// into buckets and the result is L2-normalised. It is not semantic, but it is
// deterministic and good enough for keyword overlap.
type HashingAdapter struct {
	dims int
}

// NewHashingAdapter creates a hashing embedder with dims buckets.
func NewHashingAdapter(dims int) *HashingAdapter {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &HashingAdapter{dims: dims}
}

// Embed never fails and ignores the credential.
func (a *HashingAdapter) Embed(ctx context.Context, _ entities.Credential, texts []string) ([]entities.Vector, error) {
	vectors := make([]entities.Vector, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = a.vector(t)
	}
	return vectors, nil
}

func (a *HashingAdapter) vector(text string) entities.Vector {
	vec := make(entities.Vector, a.dims)
	words := tokenize(text)
	for _, w := range words {
		vec[a.bucket(w)] += 1.0
	}
	for i := 0; i+1 < len(words); i++ {
		vec[a.bucket(words[i]+" "+words[i+1])] += 0.5
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (a *HashingAdapter) bucket(token string) int {
	h := fnv.New64a()
	h.Write([]byte(token))
	return int(h.Sum64() % uint64(a.dims))
}

func (a *HashingAdapter) Dimensions() int { return a.dims }

func (a *HashingAdapter) Name() string { return "hashing" }

// tokenize lowercases and splits on anything that is not a letter or digit.
// Single-rune tokens are dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
