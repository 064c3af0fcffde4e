package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/index"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// kwEmbedder maps texts to small vectors by counting keyword occurrences,
// so expected similarities can be worked out by hand. The last component
// is always 1 to keep every vector nonzero.
type kwEmbedder struct {
	keywords []string

	mu      sync.Mutex
	batches []int
}

func newKwEmbedder() *kwEmbedder {
	return &kwEmbedder{keywords: []string{"dictionary", "python", "structure"}}
}

func (e *kwEmbedder) embed(text string) []float32 {
	vec := make([]float32, len(e.keywords)+1)
	lower := strings.ToLower(text)
	for i, kw := range e.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(e.keywords)] = 1
	return vec
}

func (e *kwEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.batches = append(e.batches, len(texts))
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *kwEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *kwEmbedder) Dimension() int { return len(e.keywords) + 1 }

type fakeDoc struct {
	filename string
	fileType string
	size     int
}

// fakeStore is an in-memory stand-in for the Postgres store.
type fakeStore struct {
	mu         sync.Mutex
	nextDoc    int64
	nextChunk  int64
	docs       map[int64]fakeDoc
	chunks     map[int64]models.RetrievedChunk
	vectors    map[int64][]float32
	failChunks error
	deleted    []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:    make(map[int64]fakeDoc),
		chunks:  make(map[int64]models.RetrievedChunk),
		vectors: make(map[int64][]float32),
	}
}

func (s *fakeStore) InsertDocument(ctx context.Context, filename, fileType string, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoc++
	s.docs[s.nextDoc] = fakeDoc{filename: filename, fileType: fileType, size: len(data)}
	return s.nextDoc, nil
}

func (s *fakeStore) InsertChunks(ctx context.Context, documentID int64, records []models.ChunkRecord) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failChunks != nil {
		return nil, s.failChunks
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		s.nextChunk++
		s.chunks[s.nextChunk] = models.RetrievedChunk{
			ChunkID:    s.nextChunk,
			DocumentID: documentID,
			Filename:   s.docs[documentID].filename,
			Text:       rec.Text,
			Index:      rec.Index,
		}
		s.vectors[s.nextChunk] = rec.Vector
		ids[i] = s.nextChunk
	}
	return ids, nil
}

func (s *fakeStore) ChunksByIDs(ctx context.Context, ids []int64) (map[int64]models.RetrievedChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]models.RetrievedChunk, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteDocument(ctx context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[documentID]; !ok {
		return fmt.Errorf("%w: document %d", models.ErrNotFound, documentID)
	}
	delete(s.docs, documentID)
	for id, c := range s.chunks {
		if c.DocumentID == documentID {
			delete(s.chunks, id)
			delete(s.vectors, id)
		}
	}
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *fakeStore) LatestDocumentID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.docs) == 0 {
		return 0, models.ErrNoDocuments
	}
	var latest int64
	for id := range s.docs {
		if id > latest {
			latest = id
		}
	}
	return latest, nil
}

func (s *fakeStore) AllChunkVectors(ctx context.Context) ([]models.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.IndexEntry, 0, len(s.vectors))
	for id, vec := range s.vectors {
		out = append(out, models.IndexEntry{ChunkID: id, DocumentID: s.chunks[id].DocumentID, Vector: vec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

func (s *fakeStore) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

func (s *fakeStore) docCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

type stubGenerator struct {
	mu           sync.Mutex
	calls        int
	lastQuestion string
	lastContext  string
	reply        string
	err          error
}

func (g *stubGenerator) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastQuestion = question
	g.lastContext = contextBlock
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Embedding.BatchSize = 2
	cfg.Index = config.IndexConfig{Clusters: 2, Probes: 2, SampleLimit: 128, MaxIterations: 8}
	cfg.RAG.ChunkSize = 100
	cfg.RAG.ChunkOverlap = 0
	cfg.RAG.MinSimilarity = 0.5
	cfg.RAG.MaxContextRunes = 6000
	cfg.RAG.Workers = 2
	return cfg
}

type testRig struct {
	svc   *Service
	store *fakeStore
	emb   *kwEmbedder
	gen   *stubGenerator
	idx   *index.IVF
}

func newTestRig(t *testing.T, cfg *config.Config) *testRig {
	t.Helper()
	store := newFakeStore()
	emb := newKwEmbedder()
	gen := &stubGenerator{reply: "generated answer"}
	idx := index.NewIVF(cfg.Index, emb.Dimension())
	svc, err := New(store, idx, emb, gen, cfg)
	require.NoError(t, err)
	return &testRig{svc: svc, store: store, emb: emb, gen: gen, idx: idx}
}

const (
	paraDictionary = "A dictionary is a built-in data structure. The dictionary maps keys to values."
	paraPython     = "Python provides several built-in data structures for storing collections."
	paraMethods    = "Dictionaries support various methods for accessing and updating entries."

	question = "What is a Python dictionary?"
)

func dictionaryDoc() string {
	return paraDictionary + "\n\n" + paraPython + "\n\n" + paraMethods
}

func TestIngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())

	res, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", []byte(dictionaryDoc()), dictionaryDoc())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DocumentID)
	assert.Equal(t, "notes.txt", res.Filename)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, int64(len(dictionaryDoc())), res.FileSize)

	// chunk rows keep their split order
	require.Equal(t, 3, rig.store.chunkCount())
	texts := make(map[int]string)
	for _, c := range rig.store.chunks {
		texts[c.Index] = c.Text
	}
	assert.Equal(t, paraDictionary, texts[0])
	assert.Equal(t, paraPython, texts[1])
	assert.Equal(t, paraMethods, texts[2])

	chunks, err := rig.svc.Retrieve(ctx, question, 2, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, paraDictionary, chunks[0].Text)
	assert.Equal(t, paraPython, chunks[1].Text)
	assert.Equal(t, "notes.txt", chunks[0].Filename)
	assert.InDelta(t, 0.7071, chunks[0].Similarity, 1e-3)
	assert.InDelta(t, 0.6667, chunks[1].Similarity, 1e-3)
	assert.Greater(t, chunks[0].Similarity, chunks[1].Similarity)

	chunks, err = rig.svc.Retrieve(ctx, question, 10, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestRetrieveRejectsBadK(t *testing.T) {
	rig := newTestRig(t, testConfig())
	for _, k := range []int{0, -3} {
		_, err := rig.svc.Retrieve(context.Background(), question, k, 0)
		assert.True(t, errors.Is(err, models.ErrInvalidConfig), "k=%d", k)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	rig := newTestRig(t, testConfig())
	chunks, err := rig.svc.Retrieve(context.Background(), question, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, rig.gen.callCount())
}

func TestAnswerHappyPath(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)

	ans, err := rig.svc.Answer(ctx, question, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, "generated answer", ans.Answer)
	assert.False(t, ans.NoContext)
	assert.False(t, ans.LowConfidence)
	assert.False(t, ans.Degraded)
	require.Len(t, ans.Sources, 3)
	assert.Equal(t, "notes.txt", ans.Sources[0].Filename)
	assert.InDelta(t, 0.7071, ans.Sources[0].Similarity, 1e-3)

	assert.Equal(t, 1, rig.gen.callCount())
	assert.Equal(t, question, rig.gen.lastQuestion)
	assert.True(t, strings.HasPrefix(rig.gen.lastContext, "[Chunk 1]: "+paraDictionary))
	assert.Contains(t, rig.gen.lastContext, "[Chunk 2]: "+paraPython)
	assert.Contains(t, rig.gen.lastContext, "[Chunk 3]: "+paraMethods)
}

func TestAnswerNoContext(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)

	// an explicit document with no indexed chunks yields nothing
	ans, err := rig.svc.Answer(ctx, question, 3, 404)
	require.NoError(t, err)
	assert.True(t, ans.NoContext)
	assert.Equal(t, models.NoContextAnswer, ans.Answer)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 0, rig.gen.callCount())
}

func TestAnswerEmptyCorpus(t *testing.T) {
	rig := newTestRig(t, testConfig())
	_, err := rig.svc.Answer(context.Background(), question, 3, 0)
	assert.True(t, errors.Is(err, models.ErrNoDocuments))
	assert.Equal(t, 0, rig.gen.callCount())
}

func TestAnswerUnscopedSearchesAllDocuments(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())

	// the newer upload is irrelevant to the question, the older one
	// answers it; document 0 must not narrow the search to the newest
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)
	_, err = rig.svc.IngestDocument(ctx, "sailing.txt", "txt", nil, "Sailing boats heel when the wind builds.")
	require.NoError(t, err)

	ans, err := rig.svc.Answer(ctx, question, 3, 0)
	require.NoError(t, err)
	assert.False(t, ans.LowConfidence)
	assert.False(t, ans.NoContext)
	assert.Equal(t, "generated answer", ans.Answer)
	require.Len(t, ans.Sources, 3)
	for _, src := range ans.Sources {
		assert.Equal(t, "notes.txt", src.Filename)
	}
	assert.InDelta(t, 0.7071, ans.Sources[0].Similarity, 1e-3)

	assert.Equal(t, 1, rig.gen.callCount())
	assert.True(t, strings.HasPrefix(rig.gen.lastContext, "[Chunk 1]: "+paraDictionary))
}

func TestAnswerScopedToDocument(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RAG.MinSimilarity = 0.6
	rig := newTestRig(t, cfg)

	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)
	_, err = rig.svc.IngestDocument(ctx, "sailing.txt", "txt", nil, "Sailing boats heel when the wind builds.")
	require.NoError(t, err)

	// scoped to the irrelevant document nothing clears the floor
	ans, err := rig.svc.Answer(ctx, question, 3, 2)
	require.NoError(t, err)
	assert.True(t, ans.LowConfidence)
	require.NotEmpty(t, ans.Sources)
	assert.Equal(t, "sailing.txt", ans.Sources[0].Filename)
	assert.InDelta(t, 0.5774, ans.Sources[0].Similarity, 1e-3)
	assert.Equal(t, fmt.Sprintf(models.LowConfidenceAnswerFormat, ans.Sources[0].Similarity), ans.Answer)
	assert.Equal(t, 0, rig.gen.callCount())

	// the same question against the relevant document generates normally
	ans, err = rig.svc.Answer(ctx, question, 3, 1)
	require.NoError(t, err)
	assert.False(t, ans.LowConfidence)
	assert.Equal(t, "generated answer", ans.Answer)
	assert.Equal(t, 1, rig.gen.callCount())
}

func TestAnswerDegradedOnGenerationFailure(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)

	rig.gen.err = fmt.Errorf("%w: model unreachable", models.ErrGenerationFailure)
	ans, err := rig.svc.Answer(ctx, question, 3, 1)
	require.NoError(t, err)
	assert.True(t, ans.Degraded)
	assert.Equal(t, models.DegradedAnswer, ans.Answer)
	require.Len(t, ans.Sources, 3)
	assert.Equal(t, 1, rig.gen.callCount())

	// unclassified generator errors pass through untouched
	rig.gen.err = errors.New("schema drift")
	_, err = rig.svc.Answer(ctx, question, 3, 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrGenerationFailure))
}

func TestRetrieveTieBreaksOnChunkID(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())

	// two chunks with identical text embed identically
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, paraMethods+"\n\n"+paraMethods)
	require.NoError(t, err)

	chunks, err := rig.svc.Retrieve(ctx, question, 2, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, chunks[0].Similarity, chunks[1].Similarity)
	assert.Less(t, chunks[0].ChunkID, chunks[1].ChunkID)
}

func TestAssembleContextBudget(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{ChunkID: 1, Text: "aaaaaaaaaa", Similarity: 0.9},
		{ChunkID: 2, Text: "bbbbbbbbbb", Similarity: 0.8},
		{ChunkID: 3, Text: "cccccccccc", Similarity: 0.7},
	}

	cfg := testConfig()
	cfg.RAG.MaxContextRunes = 50
	rig := newTestRig(t, cfg)
	block, kept := rig.svc.AssembleContext(chunks)
	assert.Equal(t, "[Chunk 1]: aaaaaaaaaa\n\n[Chunk 2]: bbbbbbbbbb", block)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(1), kept[0].ChunkID)

	// the best chunk survives even when it alone blows the budget
	cfg = testConfig()
	cfg.RAG.MaxContextRunes = 10
	rig = newTestRig(t, cfg)
	block, kept = rig.svc.AssembleContext(chunks)
	assert.Equal(t, "[Chunk 1]: aaaaaaaaaa", block)
	require.Len(t, kept, 1)

	// zero budget means unlimited
	cfg = testConfig()
	cfg.RAG.MaxContextRunes = 0
	rig = newTestRig(t, cfg)
	_, kept = rig.svc.AssembleContext(chunks)
	assert.Len(t, kept, 3)

	block, kept = rig.svc.AssembleContext(nil)
	assert.Empty(t, block)
	assert.Empty(t, kept)
}

func TestAnswerContextBudgetTrimsSources(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RAG.MaxContextRunes = 95
	rig := newTestRig(t, cfg)
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)

	ans, err := rig.svc.Answer(ctx, question, 3, 1)
	require.NoError(t, err)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, 1, strings.Count(rig.gen.lastContext, "[Chunk "))
}

func TestIngestRollbackOnChunkInsertFailure(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())
	rig.store.failChunks = errors.New("connection reset")

	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.Error(t, err)

	assert.Equal(t, 0, rig.store.docCount())
	assert.Equal(t, []int64{1}, rig.store.deleted)
	n, err := rig.idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIngestRollbackOnIndexFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newFakeStore()
	emb := newKwEmbedder()
	gen := &stubGenerator{reply: "generated answer"}

	// index dimension disagrees with the embedder, insert must fail
	idx := index.NewIVF(cfg.Index, emb.Dimension()+1)
	svc, err := New(store, idx, emb, gen, cfg)
	require.NoError(t, err)

	_, err = svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))
	assert.Equal(t, 0, store.docCount())
	assert.Equal(t, 0, store.chunkCount())
	assert.Equal(t, []int64{1}, store.deleted)
}

func TestIngestEmptyDocument(t *testing.T) {
	rig := newTestRig(t, testConfig())
	_, err := rig.svc.IngestDocument(context.Background(), "empty.txt", "txt", nil, "  \n\t ")
	assert.True(t, errors.Is(err, models.ErrEmptyDocument))
	assert.Equal(t, 0, rig.store.docCount())
}

func TestIngestBatchesAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RAG.Workers = 3
	rig := newTestRig(t, cfg)

	// distinct keyword mixes so a misaligned vector slot cannot hide
	paras := []string{
		"The dictionary section explains lookup tables in practical depth today.",
		"The python section explains interpreter internals in practical depth.",
		"The structure section explains memory layout in practical depth today.",
		"The dictionary and python section compares both in practical depth.",
		"The dictionary and structure section compares both in practical depth.",
		"The python and structure section compares both in practical depth.",
		"The dictionary python structure section compares all in practical depth.",
	}
	text := strings.Join(paras, "\n\n")

	res, err := rig.svc.IngestDocument(ctx, "many.txt", "txt", nil, text)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Chunks)

	// batches of at most BatchSize, covering every chunk exactly once
	total := 0
	for _, n := range rig.emb.batches {
		assert.LessOrEqual(t, n, cfg.Embedding.BatchSize)
		total += n
	}
	assert.Equal(t, 7, total)

	// slot-addressed writes keep vector i aligned with chunk i
	entries, err := rig.store.AllChunkVectors(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 7)
	for _, e := range entries {
		assert.Equal(t, rig.emb.embed(rig.store.chunks[e.ChunkID].Text), e.Vector)
	}
}

func TestRetrieveTimeout(t *testing.T) {
	rig := newTestRig(t, testConfig())
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := rig.svc.Retrieve(ctx, question, 3, 0)
	assert.True(t, errors.Is(err, models.ErrTimeout))
	assert.Equal(t, 0, rig.gen.callCount())
}

func TestDeleteDocumentCascades(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, testConfig())
	res, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)

	require.NoError(t, rig.svc.DeleteDocument(ctx, res.DocumentID))
	assert.Equal(t, 0, rig.store.docCount())
	assert.Equal(t, 0, rig.store.chunkCount())
	n, err := rig.idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	chunks, err := rig.svc.Retrieve(ctx, question, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	err = rig.svc.DeleteDocument(ctx, 404)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestLoadIndexHydratesFromStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	rig := newTestRig(t, cfg)
	_, err := rig.svc.IngestDocument(ctx, "notes.txt", "txt", nil, dictionaryDoc())
	require.NoError(t, err)

	// a fresh service over the same store starts with an empty index
	emb := newKwEmbedder()
	idx := index.NewIVF(cfg.Index, emb.Dimension())
	svc, err := New(rig.store, idx, emb, &stubGenerator{reply: "generated answer"}, cfg)
	require.NoError(t, err)

	chunks, err := svc.Retrieve(ctx, question, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	require.NoError(t, svc.LoadIndex(ctx))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	chunks, err = svc.Retrieve(ctx, question, 2, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, paraDictionary, chunks[0].Text)
}

func TestLoadIndexEmptyStore(t *testing.T) {
	rig := newTestRig(t, testConfig())
	require.NoError(t, rig.svc.LoadIndex(context.Background()))
	n, err := rig.idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSourcePreviewTruncates(t *testing.T) {
	long := strings.Repeat("x", models.SourcePreviewRunes+50)
	srcs := sources([]models.RetrievedChunk{{Text: long, Filename: "big.txt"}})
	require.Len(t, srcs, 1)
	assert.Equal(t, strings.Repeat("x", models.SourcePreviewRunes)+"...", srcs[0].Text)

	srcs = sources([]models.RetrievedChunk{{Text: "short", Filename: "small.txt"}})
	assert.Equal(t, "short", srcs[0].Text)
}
