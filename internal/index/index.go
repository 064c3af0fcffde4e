package index

import (
	"context"
	"math"
	"sort"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// Index stores chunk vectors with their provenance and serves
// approximate nearest-neighbor search over them. A documentID of 0 in
// Search means no document filter. Rebuild recomputes the internal
// partitioning from the current data; backends without one treat it as
// a no-op or a storage-side reindex.
type Index interface {
	Insert(ctx context.Context, entries []models.IndexEntry) error
	Search(ctx context.Context, vec []float32, k int, documentID int64) ([]models.Hit, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
	Rebuild(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// rankHits orders by descending similarity, ties by ascending chunk id
// so equal scores always come back in the same order.
func rankHits(hits []models.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}

// normalize returns a unit-length copy of vec. Cosine similarity of
// unit vectors is their dot product.
func normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		copy(out, vec)
		return out
	}
	inv := 1 / math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(float64(v) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i, v := range a {
		sum += float64(v) * float64(b[i])
	}
	return sum
}
