package models

import "errors"

// Error kinds surfaced by the retrieval core. Callers use errors.Is to
// classify failures; IsTransient tells retryable kinds from fatal ones.
var (
	// ErrEmptyDocument indicates a document with no usable text.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrInvalidConfig indicates a chunking, embedding or index
	// misconfiguration. Fatal, never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates a vector whose dimension does not
	// match the configured embedding dimension. Fatal, a configuration bug.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreUnavailable indicates the storage backend is unreachable
	// after retries were exhausted.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTimeout indicates the query deadline elapsed before the answer
	// could be produced. No partial answer is fabricated.
	ErrTimeout = errors.New("query deadline exceeded")

	// ErrGenerationFailure indicates the generation backend kept failing
	// after retries. Retrieved chunks are still returned to the caller.
	ErrGenerationFailure = errors.New("answer generation failed")

	// ErrNoDocuments indicates no documents have been ingested yet.
	ErrNoDocuments = errors.New("no documents found")

	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat indicates a file type the text extractor
	// cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// IsTransient reports whether err is worth retrying. Store and generation
// failures are transient; everything else in the taxonomy is fatal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrGenerationFailure)
}
