package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/chunker"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/embedding"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/index"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// Store persists documents and chunks and hydrates retrieved ids back
// into text with provenance.
type Store interface {
	InsertDocument(ctx context.Context, filename, fileType string, data []byte) (int64, error)
	InsertChunks(ctx context.Context, documentID int64, records []models.ChunkRecord) ([]int64, error)
	ChunksByIDs(ctx context.Context, ids []int64) (map[int64]models.RetrievedChunk, error)
	DeleteDocument(ctx context.Context, documentID int64) error
	LatestDocumentID(ctx context.Context) (int64, error)
	AllChunkVectors(ctx context.Context) ([]models.IndexEntry, error)
}

// Generator produces an answer from a question and an assembled context
// block.
type Generator interface {
	Generate(ctx context.Context, question, contextBlock string) (string, error)
}

// Service is the retrieval pipeline: chunking, embedding, vector search
// and context assembly. Generation stays behind the Generator interface
// and is never invoked when there is nothing to ground it on.
type Service struct {
	store     Store
	index     index.Index
	embedder  embedding.Embedder
	splitter  *chunker.Splitter
	generator Generator
	cfg       *config.Config
}

func New(store Store, idx index.Index, embedder embedding.Embedder, generator Generator, cfg *config.Config) (*Service, error) {
	splitter, err := chunker.New(chunker.Config{
		TargetSize: cfg.RAG.ChunkSize,
		Overlap:    cfg.RAG.ChunkOverlap,
		Separators: cfg.RAG.Separators,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		store:     store,
		index:     idx,
		embedder:  embedder,
		splitter:  splitter,
		generator: generator,
		cfg:       cfg,
	}, nil
}

// Retrieve embeds the question and returns the k most similar chunks
// with their text and provenance, highest similarity first. A
// documentID of 0 searches across all documents.
func (s *Service) Retrieve(ctx context.Context, question string, k int, documentID int64) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", models.ErrInvalidConfig)
	}

	log.Debug().Str("question", question).Msg("embedding question")
	vecs, err := s.embedder.EmbedDocuments(ctx, []string{question})
	if err != nil {
		return nil, wrapTimeout(ctx, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one text", len(vecs))
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapTimeout(ctx, err)
	}

	log.Debug().Int("k", k).Int64("document_id", documentID).Msg("searching index")
	hits, err := s.index.Search(ctx, vecs[0], k, documentID)
	if err != nil {
		return nil, wrapTimeout(ctx, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapTimeout(ctx, err)
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	byID, err := s.store.ChunksByIDs(ctx, ids)
	if err != nil {
		return nil, wrapTimeout(ctx, err)
	}
	out := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		c, ok := byID[h.ChunkID]
		if !ok {
			log.Warn().Int64("chunk_id", h.ChunkID).Msg("indexed chunk missing from store")
			continue
		}
		c.Similarity = h.Similarity
		out = append(out, c)
	}
	return out, nil
}

// AssembleContext builds the labeled context block: each chunk is
// prefixed with its [Chunk N] position in similarity order, and the
// block is capped at the configured rune budget by dropping the
// lowest-similarity chunks. The top chunk is always kept, even alone
// over budget. It returns the block and the chunks that made it in.
func (s *Service) AssembleContext(chunks []models.RetrievedChunk) (string, []models.RetrievedChunk) {
	if len(chunks) == 0 {
		return "", nil
	}
	budget := s.cfg.RAG.MaxContextRunes
	joinerLen := utf8.RuneCountInString(models.ContextJoiner)

	parts := make([]string, 0, len(chunks))
	kept := make([]models.RetrievedChunk, 0, len(chunks))
	total := 0
	for i, c := range chunks {
		part := fmt.Sprintf(models.ChunkLabelFormat, i+1, c.Text)
		cost := utf8.RuneCountInString(part)
		if len(parts) > 0 {
			cost += joinerLen
		}
		if budget > 0 && total+cost > budget && len(parts) > 0 {
			break
		}
		parts = append(parts, part)
		kept = append(kept, c)
		total += cost
	}
	return strings.Join(parts, models.ContextJoiner), kept
}

// Answer runs the full query flow. A documentID of 0 searches across
// all documents; asking against an empty corpus fails with
// ErrNoDocuments instead of producing a canned no-context reply. Zero
// hits short-circuit to a fixed no-context reply and a best similarity
// under the floor to a low-confidence one, both without ever calling
// the generator. When generation fails after its retries, the
// retrieved chunks still come back with Degraded set.
func (s *Service) Answer(ctx context.Context, question string, k int, documentID int64) (*models.Answer, error) {
	if documentID == 0 {
		// existence check only, the search itself stays unfiltered
		if _, err := s.store.LatestDocumentID(ctx); err != nil {
			return nil, err
		}
	}

	chunks, err := s.Retrieve(ctx, question, k, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &models.Answer{Answer: models.NoContextAnswer, NoContext: true}, nil
	}

	best := chunks[0].Similarity
	if best < s.cfg.RAG.MinSimilarity {
		log.Debug().Float64("best", best).Float64("floor", s.cfg.RAG.MinSimilarity).Msg("similarity below floor")
		return &models.Answer{
			Answer:        fmt.Sprintf(models.LowConfidenceAnswerFormat, best),
			Sources:       sources(chunks),
			LowConfidence: true,
		}, nil
	}

	log.Debug().Int("chunks", len(chunks)).Msg("assembling context")
	contextBlock, kept := s.AssembleContext(chunks)

	text, err := s.generator.Generate(ctx, question, contextBlock)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrapTimeout(ctx, err)
		}
		if errors.Is(err, models.ErrGenerationFailure) {
			log.Warn().Err(err).Msg("generation failed, returning retrieved chunks only")
			return &models.Answer{
				Answer:   models.DegradedAnswer,
				Sources:  sources(kept),
				Degraded: true,
			}, nil
		}
		return nil, err
	}
	return &models.Answer{Answer: text, Sources: sources(kept)}, nil
}

func sources(chunks []models.RetrievedChunk) []models.Source {
	out := make([]models.Source, len(chunks))
	for i, c := range chunks {
		out[i] = models.Source{
			Text:       preview(c.Text, models.SourcePreviewRunes),
			Filename:   c.Filename,
			DocumentID: c.DocumentID,
			Similarity: c.Similarity,
		}
	}
	return out
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// wrapTimeout converts deadline expiry into the pipeline's timeout
// error and leaves every other failure untouched.
func wrapTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return err
}
