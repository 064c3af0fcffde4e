package index

import (
	"context"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/db"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// PGVector serves searches straight from the Postgres ivfflat index, so
// the store is both system of record and ANN index. Insert is a no-op
// because vectors land in Postgres when chunks are persisted; Rebuild
// reindexes on the server.
type PGVector struct {
	store *db.Store
}

var _ Index = (*PGVector)(nil)

func NewPGVector(store *db.Store) *PGVector {
	return &PGVector{store: store}
}

func (x *PGVector) Insert(ctx context.Context, entries []models.IndexEntry) error {
	// already persisted with the chunks
	return nil
}

func (x *PGVector) Search(ctx context.Context, vec []float32, k int, documentID int64) ([]models.Hit, error) {
	return x.store.SimilaritySearch(ctx, vec, k, documentID)
}

func (x *PGVector) DeleteByDocument(ctx context.Context, documentID int64) error {
	return x.store.DeleteChunks(ctx, documentID)
}

func (x *PGVector) Rebuild(ctx context.Context) error {
	return x.store.ReindexVectors(ctx)
}

func (x *PGVector) Count(ctx context.Context) (int, error) {
	return x.store.CountChunks(ctx)
}
