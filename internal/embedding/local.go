package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Local is a feature-hashing embedder for offline runs and tests. It
// has none of the semantic quality of a trained model, but it needs no
// server and is stable across processes: the same text always maps to
// the same unit-length vector.
type Local struct {
	dim int
}

var _ Embedder = (*Local)(nil)

func NewLocal(dim int) *Local {
	return &Local{dim: dim}
}

func (l *Local) Dimension() int {
	return l.dim
}

func (l *Local) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = l.embed(t)
	}
	return out, nil
}

func (l *Local) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return l.embed(text), nil
}

// embed hashes lowercased word tokens into signed buckets and
// normalizes the counts to unit length.
func (l *Local) embed(text string) []float32 {
	vec := make([]float32, l.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[int(sum%uint64(l.dim))] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// no tokens at all, still return a valid unit vector
		vec[0] = 1
		return vec
	}
	inv := 1 / math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
