package domain

import "context"

// Document represents a single source file whose text was extracted.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a bounded part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Path       string
	Text       string
	Index      int
	// Offset is the rune offset of Text within the document content.
	Offset int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts free text into a fixed-dimension vector.
// Implementations must return the same vector for identical input.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// DocumentLoader produces the documents to index.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}

// LanguageModel synthesises an answer to a question from retrieved context.
type LanguageModel interface {
	Name() string
	Complete(ctx context.Context, question string, contexts []string) (string, error)
}
