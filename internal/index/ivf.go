package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// IVF is an in-memory inverted-file index. Vectors are unit-normalized
// on insert so cosine similarity reduces to a dot product. Rebuild runs
// spherical k-means over an id-sorted, bounded sample to partition the
// vectors into clusters; searches then probe only the clusters nearest
// the query. Vectors inserted after a build join their nearest existing
// cluster, which keeps them searchable but lets recall drift until the
// next Rebuild. Seeding and iteration order are fixed, so the same data
// always builds the same partitioning.
type IVF struct {
	dim         int
	clusters    int
	probes      int
	sampleLimit int
	maxIter     int

	mu        sync.RWMutex
	entries   map[int64]*ivfEntry
	byDoc     map[int64]map[int64]*ivfEntry
	centroids [][]float32
	members   []map[int64]*ivfEntry
	built     bool
}

type ivfEntry struct {
	chunkID    int64
	documentID int64
	vec        []float32
	cluster    int
}

var _ Index = (*IVF)(nil)

func NewIVF(cfg config.IndexConfig, dim int) *IVF {
	return &IVF{
		dim:         dim,
		clusters:    cfg.Clusters,
		probes:      cfg.Probes,
		sampleLimit: cfg.SampleLimit,
		maxIter:     cfg.MaxIterations,
		entries:     make(map[int64]*ivfEntry),
		byDoc:       make(map[int64]map[int64]*ivfEntry),
	}
}

// Insert adds entries to the index. An entry for an already-indexed
// chunk replaces the old vector. Dimensions are validated up front so a
// bad batch never leaves the index partially updated.
func (x *IVF) Insert(ctx context.Context, entries []models.IndexEntry) error {
	for _, e := range entries {
		if len(e.Vector) != x.dim {
			return fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				models.ErrDimensionMismatch, e.ChunkID, len(e.Vector), x.dim)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, e := range entries {
		x.remove(e.ChunkID)
		ent := &ivfEntry{
			chunkID:    e.ChunkID,
			documentID: e.DocumentID,
			vec:        normalize(e.Vector),
			cluster:    -1,
		}
		if x.built && len(x.centroids) > 0 {
			ent.cluster = nearestTo(x.centroids, ent.vec)
			x.members[ent.cluster][ent.chunkID] = ent
		}
		x.entries[ent.chunkID] = ent
		doc := x.byDoc[ent.documentID]
		if doc == nil {
			doc = make(map[int64]*ivfEntry)
			x.byDoc[ent.documentID] = doc
		}
		doc[ent.chunkID] = ent
	}
	return nil
}

// Search returns the k entries most similar to vec, highest first.
// Document-filtered searches scan that document's entries exactly;
// unfiltered searches probe the nearest clusters when a build exists
// and fall back to a full scan when it does not.
func (x *IVF) Search(ctx context.Context, vec []float32, k int, documentID int64) ([]models.Hit, error) {
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			models.ErrDimensionMismatch, len(vec), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	q := normalize(vec)

	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []models.Hit
	score := func(ent *ivfEntry) {
		hits = append(hits, models.Hit{
			ChunkID:    ent.chunkID,
			DocumentID: ent.documentID,
			Similarity: dot(q, ent.vec),
		})
	}
	switch {
	case documentID != 0:
		for _, ent := range x.byDoc[documentID] {
			score(ent)
		}
	case !x.built || len(x.centroids) == 0:
		for _, ent := range x.entries {
			score(ent)
		}
	default:
		for _, ci := range x.nearestCentroids(q, x.probes) {
			for _, ent := range x.members[ci] {
				score(ent)
			}
		}
	}

	rankHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes every entry for the document. Searches in
// flight see either all of the document's entries or none of them.
func (x *IVF) DeleteByDocument(ctx context.Context, documentID int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	ids := make([]int64, 0, len(x.byDoc[documentID]))
	for chunkID := range x.byDoc[documentID] {
		ids = append(ids, chunkID)
	}
	for _, chunkID := range ids {
		x.remove(chunkID)
	}
	return nil
}

// Rebuild recomputes the cluster partitioning from the current entries.
// It takes the write lock for the whole build, so it blocks searches
// and inserts; callers schedule it explicitly after bulk ingestion.
func (x *IVF) Rebuild(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	all := make([]*ivfEntry, 0, len(x.entries))
	for _, ent := range x.entries {
		all = append(all, ent)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].chunkID < all[j].chunkID })

	if len(all) == 0 {
		x.centroids = nil
		x.members = nil
		x.built = false
		return nil
	}

	// bounded sample keeps build cost flat as the corpus grows
	sample := all
	if len(all) > x.sampleLimit {
		sample = make([]*ivfEntry, x.sampleLimit)
		stride := float64(len(all)) / float64(x.sampleLimit)
		for i := range sample {
			sample[i] = all[int(float64(i)*stride)]
		}
	}

	k := min(x.clusters, len(sample))

	// evenly spaced seeds over the id-sorted sample, no randomness
	centroids := make([][]float32, k)
	for i := range centroids {
		centroids[i] = append([]float32(nil), sample[i*len(sample)/k].vec...)
	}

	assign := make([]int, len(sample))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < x.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed := false
		for i, ent := range sample {
			best := nearestTo(centroids, ent.vec)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, x.dim)
		}
		for i, ent := range sample {
			c := assign[i]
			counts[c]++
			for d, v := range ent.vec {
				sums[c][d] += float64(v)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// empty cluster keeps its previous centroid
				continue
			}
			mean := sums[c]
			var norm float64
			for d := range mean {
				mean[d] /= float64(counts[c])
				norm += mean[d] * mean[d]
			}
			centroid := make([]float32, x.dim)
			if norm > 0 {
				inv := 1 / math.Sqrt(norm)
				for d := range mean {
					centroid[d] = float32(mean[d] * inv)
				}
			}
			centroids[c] = centroid
		}
	}

	members := make([]map[int64]*ivfEntry, k)
	for c := range members {
		members[c] = make(map[int64]*ivfEntry)
	}
	for _, ent := range all {
		c := nearestTo(centroids, ent.vec)
		ent.cluster = c
		members[c][ent.chunkID] = ent
	}
	x.centroids = centroids
	x.members = members
	x.built = true
	return nil
}

func (x *IVF) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// remove expects the write lock to be held.
func (x *IVF) remove(chunkID int64) {
	ent, ok := x.entries[chunkID]
	if !ok {
		return
	}
	delete(x.entries, chunkID)
	if doc := x.byDoc[ent.documentID]; doc != nil {
		delete(doc, chunkID)
		if len(doc) == 0 {
			delete(x.byDoc, ent.documentID)
		}
	}
	if ent.cluster >= 0 {
		delete(x.members[ent.cluster], chunkID)
	}
}

func (x *IVF) nearestCentroids(vec []float32, n int) []int {
	type cand struct {
		idx int
		sim float64
	}
	cands := make([]cand, len(x.centroids))
	for i, c := range x.centroids {
		cands[i] = cand{idx: i, sim: dot(vec, c)}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].sim != cands[j].sim {
			return cands[i].sim > cands[j].sim
		}
		return cands[i].idx < cands[j].idx
	})
	n = min(n, len(cands))
	out := make([]int, n)
	for i := range out {
		out[i] = cands[i].idx
	}
	return out
}

func nearestTo(centroids [][]float32, vec []float32) int {
	best := 0
	bestSim := math.Inf(-1)
	for i, c := range centroids {
		if sim := dot(vec, c); sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	return best
}
