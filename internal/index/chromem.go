package index

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

const compressSnapshots = false

// Chromem is an embedded vector index backed by chromem-go, either in
// memory or persisted to a directory. Queries are exhaustive, so there
// is no partitioning to maintain; Rebuild doubles as an encrypted
// snapshot point when a key is configured.
type Chromem struct {
	db            *chromem.DB
	col           *chromem.Collection
	dim           int
	snapshotPath  string
	encryptionKey string
}

var _ Index = (*Chromem)(nil)

func NewChromem(cfg config.IndexConfig, dim int) (*Chromem, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compressSnapshots)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return &Chromem{
		db:            db,
		col:           col,
		dim:           dim,
		snapshotPath:  filepath.Join(cfg.Path, cfg.Collection+".chromem"),
		encryptionKey: cfg.EncryptionKey,
	}, nil
}

func (x *Chromem) Insert(ctx context.Context, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if len(e.Vector) != x.dim {
			return fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				models.ErrDimensionMismatch, e.ChunkID, len(e.Vector), x.dim)
		}
	}
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID: strconv.FormatInt(e.ChunkID, 10),
			Metadata: map[string]string{
				"document_id": strconv.FormatInt(e.DocumentID, 10),
			},
			Embedding: normalize(e.Vector),
		})
	}
	if err := x.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (x *Chromem) Search(ctx context.Context, vec []float32, k int, documentID int64) ([]models.Hit, error) {
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			models.ErrDimensionMismatch, len(vec), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size
	n := min(k, x.col.Count())
	if n == 0 {
		return nil, nil
	}
	opts := chromem.QueryOptions{
		QueryEmbedding: normalize(vec),
		NResults:       n,
	}
	if documentID != 0 {
		opts.Where = map[string]string{
			"document_id": strconv.FormatInt(documentID, 10),
		}
	}
	results, err := x.col.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	hits := make([]models.Hit, 0, len(results))
	for _, res := range results {
		chunkID, err := strconv.ParseInt(res.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse chunk id %q: %v", res.ID, err)
		}
		docID, err := strconv.ParseInt(res.Metadata["document_id"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document id %q: %v", res.Metadata["document_id"], err)
		}
		hits = append(hits, models.Hit{
			ChunkID:    chunkID,
			DocumentID: docID,
			Similarity: float64(res.Similarity),
		})
	}
	// chromem breaks similarity ties in map order, re-rank for stable ids
	rankHits(hits)
	return hits, nil
}

func (x *Chromem) DeleteByDocument(ctx context.Context, documentID int64) error {
	where := map[string]string{
		"document_id": strconv.FormatInt(documentID, 10),
	}
	if err := x.col.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: failed to delete document %d: %v", models.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

// Rebuild has no partitioning to recompute on this backend. When an
// encryption key is configured it exports the collection to an
// encrypted snapshot file instead, so scheduled rebuilds double as
// backups.
func (x *Chromem) Rebuild(ctx context.Context) error {
	if x.encryptionKey == "" {
		return nil
	}
	if err := x.db.ExportToFile(x.snapshotPath, compressSnapshots, x.encryptionKey, x.col.Name); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

func (x *Chromem) Count(ctx context.Context) (int, error) {
	return x.col.Count(), nil
}
