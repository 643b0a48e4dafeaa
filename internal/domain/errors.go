package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus means no extractable text was found under the document root.
	ErrEmptyCorpus = errors.New("no extractable text found in document root")
	// ErrEmbedding means the embedding provider failed or returned invalid vectors.
	ErrEmbedding = errors.New("embedding failed")
	// ErrNotReady means no index could be built or loaded.
	ErrNotReady = errors.New("index not ready")
	// ErrUpstream means the language model call failed.
	ErrUpstream = errors.New("language model call failed")
	// ErrCorruptIndex means a persisted index directory is incomplete or inconsistent.
	ErrCorruptIndex = errors.New("persisted index is corrupt")
	// ErrInvalidQuestion means the question is empty.
	ErrInvalidQuestion = errors.New("question is required")
)

// ExtractionError reports a single file that could not be extracted.
// It never aborts an indexing pass; the file is skipped.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
