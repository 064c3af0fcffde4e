package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// IngestDocument chunks, embeds and persists one document, then feeds
// the index. Chunk indices are assigned during the sequential split, so
// the concurrent embedding stage cannot reorder them. Any failure after
// the document row exists rolls the whole document back; a partial
// chunk set is never left searchable.
func (s *Service) IngestDocument(ctx context.Context, filename, fileType string, data []byte, text string) (*models.IngestResult, error) {
	pieces, err := s.splitter.Split(text)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}

	log.Debug().Str("filename", filename).Int("chunks", len(pieces)).Msg("embedding chunks")
	vecs, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, wrapTimeout(ctx, err)
	}

	docID, err := s.store.InsertDocument(ctx, filename, fileType, data)
	if err != nil {
		return nil, err
	}

	records := make([]models.ChunkRecord, len(pieces))
	for i, p := range pieces {
		records[i] = models.ChunkRecord{Text: p.Text, Index: p.Index, Vector: vecs[i]}
	}
	chunkIDs, err := s.store.InsertChunks(ctx, docID, records)
	if err != nil {
		s.rollback(ctx, docID)
		return nil, err
	}

	entries := make([]models.IndexEntry, len(chunkIDs))
	for i, id := range chunkIDs {
		entries[i] = models.IndexEntry{ChunkID: id, DocumentID: docID, Vector: vecs[i]}
	}
	if err := s.index.Insert(ctx, entries); err != nil {
		s.rollback(ctx, docID)
		return nil, err
	}

	log.Info().
		Int64("document_id", docID).
		Str("filename", filename).
		Int("chunks", len(chunkIDs)).
		Msg("document ingested")
	return &models.IngestResult{
		DocumentID: docID,
		Filename:   filename,
		FileSize:   int64(len(data)),
		Chunks:     len(chunkIDs),
	}, nil
}

// embedAll embeds chunk texts in batches across a bounded worker pool.
// Each batch writes into its own slot range, so the output order always
// matches the input order no matter which worker finishes first. The
// first error cancels the remaining work.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	batchSize := s.cfg.Embedding.BatchSize
	numBatches := (len(texts) + batchSize - 1) / batchSize
	workers := min(s.cfg.RAG.Workers, numBatches)
	if workers == 0 {
		return out, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batch struct{ start, end int }
	batches := make(chan batch)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				vecs, err := s.embedder.EmbedDocuments(ctx, texts[b.start:b.end])
				if err != nil {
					fail(err)
					return
				}
				if len(vecs) != b.end-b.start {
					fail(fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), b.end-b.start))
					return
				}
				copy(out[b.start:b.end], vecs)
			}
		}()
	}

	go func() {
		defer close(batches)
		for start := 0; start < len(texts); start += batchSize {
			select {
			case batches <- batch{start: start, end: min(start+batchSize, len(texts))}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// rollback removes a half-ingested document. It runs detached from the
// caller's context so cancellation cannot strand partial rows.
func (s *Service) rollback(ctx context.Context, documentID int64) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.index.DeleteByDocument(cleanupCtx, documentID); err != nil {
		log.Error().Err(err).Int64("document_id", documentID).Msg("failed to clean index after aborted ingestion")
	}
	if err := s.store.DeleteDocument(cleanupCtx, documentID); err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Error().Err(err).Int64("document_id", documentID).Msg("failed to clean document after aborted ingestion")
	}
}

// DeleteDocument cascades a delete: index entries go first, then the
// stored chunks and document row. A search running alongside sees the
// document either fully present in the index or fully gone.
func (s *Service) DeleteDocument(ctx context.Context, documentID int64) error {
	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, documentID)
}

// Rebuild recomputes the index partitioning from the current data.
// Explicit maintenance, meant for after bulk ingestion.
func (s *Service) Rebuild(ctx context.Context) error {
	return s.index.Rebuild(ctx)
}

// LoadIndex hydrates the index from the store and builds partitions
// from the current vector distribution. Meant for startup with
// in-memory index backends.
func (s *Service) LoadIndex(ctx context.Context) error {
	entries, err := s.store.AllChunkVectors(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := s.index.Insert(ctx, entries); err != nil {
		return err
	}
	return s.index.Rebuild(ctx)
}
