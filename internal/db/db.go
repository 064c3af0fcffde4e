package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Filename   string    `bun:"filename,notnull" json:"filename"`
	FileType   string    `bun:"file_type,notnull" json:"file_type"`
	FileData   []byte    `bun:"file_data" json:"-"`
	FileSize   int64     `bun:"file_size,notnull" json:"file_size"`
	UploadedAt time.Time `bun:"uploaded_at,nullzero,notnull,default:current_timestamp" json:"uploaded_at"`
}

type DocumentChunk struct {
	bun.BaseModel `bun:"table:document_chunks,alias:dc"`

	ID         int64           `bun:"id,pk,autoincrement"`
	DocumentID int64           `bun:"document_id,notnull"`
	ChunkText  string          `bun:"chunk_text,notnull"`
	ChunkIndex int             `bun:"chunk_index,notnull"`
	Embedding  pgvector.Vector `bun:"embedding,notnull"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func Connect(cfg config.DatabaseConfig) (*bun.DB, error) {
	var sqldb *sql.DB
	switch cfg.Driver {
	case "pq":
		var err error
		sqldb, err = sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %v", err)
		}
	default:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL)))
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// Store is the system of record for documents, chunks and their
// vectors. Reads retry transiently failed calls with doubling backoff;
// writes run once and surface connection failures as ErrStoreUnavailable
// so the caller can roll back and retry the whole operation.
type Store struct {
	db    *bun.DB
	cfg   config.DatabaseConfig
	dim   int
	lists int
}

func NewStore(db *bun.DB, cfg *config.Config) *Store {
	return &Store{
		db:    db,
		cfg:   cfg.Database,
		dim:   cfg.Embedding.Dimension,
		lists: cfg.Index.Lists,
	}
}

// Init creates the pgvector extension, the tables and the ivfflat
// index. The chunk table is raw DDL because the vector dimension and
// list count come from config, not from a struct tag.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return classify("create vector extension", err)
	}
	if _, err := s.db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return classify("create documents table", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_text TEXT NOT NULL,
		chunk_index INT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.dim)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return classify("create document_chunks table", err)
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
		ON document_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, s.lists)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return classify("create embedding index", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return classify("ping database", s.db.PingContext(ctx))
}

func (s *Store) InsertDocument(ctx context.Context, filename, fileType string, data []byte) (int64, error) {
	doc := &Document{
		Filename: filename,
		FileType: fileType,
		FileData: data,
		FileSize: int64(len(data)),
	}
	if _, err := s.db.NewInsert().Model(doc).Returning("id").Exec(ctx); err != nil {
		return 0, classify("insert document", err)
	}
	return doc.ID, nil
}

// InsertChunks persists a document's chunks in one bulk insert and
// returns the generated chunk ids in record order.
func (s *Store) InsertChunks(ctx context.Context, documentID int64, records []models.ChunkRecord) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	rows := make([]*DocumentChunk, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, store expects %d",
				models.ErrDimensionMismatch, r.Index, len(r.Vector), s.dim)
		}
		rows[i] = &DocumentChunk{
			DocumentID: documentID,
			ChunkText:  r.Text,
			ChunkIndex: r.Index,
			Embedding:  pgvector.NewVector(r.Vector),
		}
	}
	if _, err := s.db.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return nil, classify("insert chunks", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// SimilaritySearch ranks chunks by cosine similarity to vec using the
// pgvector <=> operator, most similar first, ties by ascending id. A
// documentID of 0 searches all documents.
func (s *Store) SimilaritySearch(ctx context.Context, vec []float32, k int, documentID int64) ([]models.Hit, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, store expects %d",
			models.ErrDimensionMismatch, len(vec), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	type row struct {
		ID         int64   `bun:"id"`
		DocumentID int64   `bun:"document_id"`
		Similarity float64 `bun:"similarity"`
	}
	qv := pgvector.NewVector(vec)
	var rows []row
	err := s.withRetry(ctx, "similarity search", func(ctx context.Context) error {
		rows = rows[:0]
		q := s.db.NewSelect().
			TableExpr("document_chunks").
			ColumnExpr("id, document_id").
			ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", qv).
			OrderExpr("embedding <=> ?::vector", qv).
			OrderExpr("id ASC").
			Limit(k)
		if documentID != 0 {
			q = q.Where("document_id = ?", documentID)
		}
		return q.Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	hits := make([]models.Hit, len(rows))
	for i, r := range rows {
		hits[i] = models.Hit{ChunkID: r.ID, DocumentID: r.DocumentID, Similarity: r.Similarity}
	}
	return hits, nil
}

// ChunksByIDs loads chunk text and provenance for the given chunk ids,
// keyed by chunk id. Embeddings are not loaded.
func (s *Store) ChunksByIDs(ctx context.Context, ids []int64) (map[int64]models.RetrievedChunk, error) {
	out := make(map[int64]models.RetrievedChunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var chunks []DocumentChunk
	err := s.withRetry(ctx, "load chunks", func(ctx context.Context) error {
		chunks = chunks[:0]
		return s.db.NewSelect().
			Model(&chunks).
			ExcludeColumn("embedding").
			Where("dc.id IN (?)", bun.In(ids)).
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}

	docIDs := make([]int64, 0, len(chunks))
	seen := make(map[int64]bool)
	for _, c := range chunks {
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			docIDs = append(docIDs, c.DocumentID)
		}
	}
	names := make(map[int64]string, len(docIDs))
	if len(docIDs) > 0 {
		var docs []Document
		err = s.withRetry(ctx, "load documents", func(ctx context.Context) error {
			docs = docs[:0]
			return s.db.NewSelect().
				Model(&docs).
				Column("id", "filename").
				Where("d.id IN (?)", bun.In(docIDs)).
				Scan(ctx)
		})
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			names[d.ID] = d.Filename
		}
	}

	for _, c := range chunks {
		out[c.ID] = models.RetrievedChunk{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Filename:   names[c.DocumentID],
			Text:       c.ChunkText,
			Index:      c.ChunkIndex,
		}
	}
	return out, nil
}

func (s *Store) DeleteChunks(ctx context.Context, documentID int64) error {
	_, err := s.db.NewDelete().
		Model((*DocumentChunk)(nil)).
		Where("document_id = ?", documentID).
		Exec(ctx)
	return classify("delete chunks", err)
}

// DeleteDocument removes a document and its chunks in one transaction.
// The chunk delete is explicit rather than leaning on the FK cascade so
// the intermediate state is bounded by the transaction either way.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*DocumentChunk)(nil)).
			Where("document_id = ?", documentID).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*Document)(nil)).
			Where("id = ?", documentID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: document %d", models.ErrNotFound, documentID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return classify("delete document", err)
	}
	return nil
}

// LatestDocumentID returns the most recently uploaded document.
func (s *Store) LatestDocumentID(ctx context.Context) (int64, error) {
	var id int64
	err := s.withRetry(ctx, "latest document", func(ctx context.Context) error {
		return s.db.NewSelect().
			Model((*Document)(nil)).
			Column("id").
			OrderExpr("uploaded_at DESC").
			OrderExpr("id DESC").
			Limit(1).
			Scan(ctx, &id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrNoDocuments
		}
		return 0, err
	}
	return id, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := s.withRetry(ctx, "list documents", func(ctx context.Context) error {
		docs = docs[:0]
		return s.db.NewSelect().
			Model(&docs).
			ExcludeColumn("file_data").
			OrderExpr("uploaded_at DESC").
			OrderExpr("id DESC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) GetDocument(ctx context.Context, documentID int64) (*Document, error) {
	doc := new(Document)
	err := s.withRetry(ctx, "get document", func(ctx context.Context) error {
		return s.db.NewSelect().
			Model(doc).
			ExcludeColumn("file_data").
			Where("d.id = ?", documentID).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %d", models.ErrNotFound, documentID)
		}
		return nil, err
	}
	return doc, nil
}

// GetDocumentFile loads the document including its stored file bytes.
// GetDocument is the cheap variant for metadata-only callers.
func (s *Store) GetDocumentFile(ctx context.Context, documentID int64) (*Document, error) {
	doc := new(Document)
	err := s.withRetry(ctx, "get document file", func(ctx context.Context) error {
		return s.db.NewSelect().
			Model(doc).
			Where("d.id = ?", documentID).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %d", models.ErrNotFound, documentID)
		}
		return nil, err
	}
	return doc, nil
}

// AllChunkVectors streams every stored vector with its provenance, id
// order. A stored vector whose dimension disagrees with the configured
// one is a data-integrity violation and fails the whole read.
func (s *Store) AllChunkVectors(ctx context.Context) ([]models.IndexEntry, error) {
	type row struct {
		ID         int64           `bun:"id"`
		DocumentID int64           `bun:"document_id"`
		Embedding  pgvector.Vector `bun:"embedding"`
	}
	var rows []row
	err := s.withRetry(ctx, "load vectors", func(ctx context.Context) error {
		rows = rows[:0]
		return s.db.NewSelect().
			TableExpr("document_chunks").
			ColumnExpr("id, document_id, embedding").
			OrderExpr("id ASC").
			Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	entries := make([]models.IndexEntry, len(rows))
	for i, r := range rows {
		vec := r.Embedding.Slice()
		if len(vec) != s.dim {
			return nil, fmt.Errorf("%w: stored chunk %d has dimension %d, expected %d",
				models.ErrDimensionMismatch, r.ID, len(vec), s.dim)
		}
		entries[i] = models.IndexEntry{ChunkID: r.ID, DocumentID: r.DocumentID, Vector: vec}
	}
	return entries, nil
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.withRetry(ctx, "count chunks", func(ctx context.Context) error {
		var err error
		n, err = s.db.NewSelect().Model((*DocumentChunk)(nil)).Count(ctx)
		return err
	})
	return n, err
}

// ReindexVectors rebuilds the ivfflat index so its partitioning
// reflects the current vector distribution.
func (s *Store) ReindexVectors(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "REINDEX INDEX document_chunks_embedding_idx")
	return classify("reindex vectors", err)
}

func (s *Store) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := time.Duration(s.cfg.RetryBackoffMS) * time.Millisecond
	var err error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == s.cfg.MaxRetries {
			break
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("store call failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %s failed after %d attempts: %v",
		models.ErrStoreUnavailable, op, s.cfg.MaxRetries, err)
}

// retryable reports whether err looks like a connection-level failure
// worth another attempt. Context errors and ordinary query errors are
// not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF)
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if retryable(err) {
		return fmt.Errorf("%w: failed to %s: %v", models.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %v", op, err)
}
