package models

// IndexEntry is the tuple held by a vector index for one embedded chunk.
// Its lifecycle is tied to the chunk: created when the chunk is embedded
// and inserted, destroyed when the owning document is deleted.
type IndexEntry struct {
	ChunkID    int64
	DocumentID int64
	Vector     []float32
}

// ChunkRecord is one chunk ready to persist: its text, position within
// the document and embedding vector.
type ChunkRecord struct {
	Text   string
	Index  int
	Vector []float32
}

// Hit is a single similarity search result.
type Hit struct {
	ChunkID    int64
	DocumentID int64
	Similarity float64
}

// RetrievedChunk is a search hit hydrated with chunk text and provenance.
type RetrievedChunk struct {
	ChunkID    int64
	DocumentID int64
	Filename   string
	Text       string
	Index      int
	Similarity float64
}

// Source describes where part of an answer came from, for citation display.
// Text is truncated to SourcePreviewRunes.
type Source struct {
	Text       string  `json:"text"`
	Filename   string  `json:"filename"`
	DocumentID int64   `json:"document_id"`
	Similarity float64 `json:"similarity"`
}

// Answer is the result of a full question-answering pass.
//
// NoContext is set when retrieval found nothing relevant and the generator
// was never invoked. LowConfidence is set when chunks were found but none
// cleared the similarity threshold; the generator is skipped then too.
// Degraded is set when retrieval succeeded but generation kept failing:
// Sources are still populated so the caller can show the evidence.
type Answer struct {
	Answer        string   `json:"answer"`
	Sources       []Source `json:"sources"`
	NoContext     bool     `json:"no_context,omitempty"`
	LowConfidence bool     `json:"low_confidence,omitempty"`
	Degraded      bool     `json:"degraded,omitempty"`
}

// IngestResult summarizes a completed document ingestion.
type IngestResult struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	Chunks     int    `json:"chunks"`
}
