package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyrag/internal/domain"
	"policyrag/internal/embedding/hashing"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedder) Name() string   { return "stub" }
func (s *stubEmbedder) Dimension() int { return 2 }
func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("not used")
}
func (s *stubEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return s.vectors, s.err
}

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{DocumentID: "doc", ChunkID: "doc:" + string(rune('a'+i)), Text: t, Index: i}
	}
	return out
}

func TestBuild_EmptyCorpus(t *testing.T) {
	_, err := Build(context.Background(), &stubEmbedder{}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestBuild_EmbeddingErrors(t *testing.T) {
	ctx := context.Background()
	chunks := chunksOf("a", "b")
	cases := map[string]*stubEmbedder{
		"provider error":     {err: errors.New("connection refused")},
		"wrong count":        {vectors: [][]float32{{1, 0}}},
		"zero length":        {vectors: [][]float32{{}, {}}},
		"dimension mismatch": {vectors: [][]float32{{1, 0}, {1, 0, 0}}},
		"nan":                {vectors: [][]float32{{1, 0}, {float32(math.NaN()), 0}}},
	}
	for name, emb := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(ctx, emb, chunks)
			assert.ErrorIs(t, err, domain.ErrEmbedding)
		})
	}
}

func TestSearch_OrderAndLimit(t *testing.T) {
	ix, err := New("stub", chunksOf("x", "y", "z"), [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}})
	require.NoError(t, err)

	res, err := ix.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "x", res[0].Chunk.Text)
	assert.Equal(t, "z", res[1].Chunk.Text)
	assert.Equal(t, "y", res[2].Chunk.Text)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}

	res, err = ix.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ix, err := New("stub", chunksOf("first", "second", "third", "fourth"),
		[][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}})
	require.NoError(t, err)
	res, err := ix.Search([]float32{1, 0}, 0)
	require.NoError(t, err)
	require.Len(t, res, 4)
	assert.Equal(t, []string{"second", "fourth", "first", "third"},
		[]string{res[0].Chunk.Text, res[1].Chunk.Text, res[2].Chunk.Text, res[3].Chunk.Text})
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ix, err := New("stub", chunksOf("x"), [][]float32{{1, 0}})
	require.NoError(t, err)
	_, err = ix.Search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestBuild_WithHashingEmbedder(t *testing.T) {
	emb := hashing.NewEmbedder(128)
	ctx := context.Background()
	ix, err := Build(ctx, emb, chunksOf(
		"Students must attend every lecture.",
		"Library books are due in two weeks.",
		"Exams are held at the end of term.",
	))
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 128, ix.Dimension())
	assert.Equal(t, "hashing", ix.EmbedderName())
	assert.NotEmpty(t, ix.ID())

	q, err := emb.Embed(ctx, "library books due")
	require.NoError(t, err)
	res, err := ix.Search(q, 5)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "Library books are due in two weeks.", res[0].Chunk.Text)
}
