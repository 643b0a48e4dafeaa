// Package vectorstore holds the searchable (chunk, vector) index, builds it
// through an embedding provider and persists it to a directory.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"policyrag/internal/domain"
)

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 4

// Index is an immutable flat vector index using brute-force cosine similarity.
// It is safe for concurrent searches.
type Index struct {
	id        string
	embedder  string
	dimension int
	createdAt time.Time
	chunks    []domain.Chunk
	vectors   [][]float32
}

// Build embeds every chunk and returns a new index.
func Build(ctx context.Context, embedder domain.Embedder, chunks []domain.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	return New(embedder.Name(), chunks, vectors)
}

// New assembles an index from already computed vectors after validating them.
func New(embedderName string, chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if err := validateVectors(vectors, len(chunks)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	cs := make([]domain.Chunk, len(chunks))
	copy(cs, chunks)
	return &Index{
		id:        uuid.NewString(),
		embedder:  embedderName,
		dimension: len(vectors[0]),
		createdAt: time.Now().UTC(),
		chunks:    cs,
		vectors:   vectors,
	}, nil
}

func validateVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("expected %d vectors, got %d", want, len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("zero-length vector")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("vector %d contains a non-finite value", i)
			}
		}
	}
	return nil
}

// ID returns the unique build identifier of this index.
func (ix *Index) ID() string { return ix.id }

// EmbedderName returns the name of the embedder that produced the vectors.
func (ix *Index) EmbedderName() string { return ix.embedder }

// Dimension returns the vector dimension.
func (ix *Index) Dimension() int { return ix.dimension }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// CreatedAt returns when the index was built.
func (ix *Index) CreatedAt() time.Time { return ix.createdAt }

// Chunks returns a copy of the indexed chunks in insertion order.
func (ix *Index) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

// Search returns up to topK chunks ordered by decreasing cosine similarity.
// Equal scores keep insertion order.
func (ix *Index) Search(query []float32, topK int) ([]domain.SearchResult, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrEmbedding, len(query), ix.dimension)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	scores := make([]float64, len(ix.vectors))
	for i := range ix.vectors {
		scores[i] = cosine(ix.vectors[i], query)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Chunk: ix.chunks[j], Score: scores[j]})
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
