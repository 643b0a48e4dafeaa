package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyrag/internal/domain"
)

func TestNewRecursiveChunker_Validation(t *testing.T) {
	_, err := NewRecursiveChunker(0, 0)
	assert.Error(t, err)
	_, err = NewRecursiveChunker(100, 100)
	assert.Error(t, err)
	_, err = NewRecursiveChunker(100, -1)
	assert.Error(t, err)
	c, err := NewRecursiveChunker(100, 20)
	require.NoError(t, err)
	assert.Equal(t, 100, c.ChunkSize())
	assert.Equal(t, 20, c.ChunkOverlap())
}

func TestChunk_PolicyScenario(t *testing.T) {
	text := strings.Repeat("Attendance is mandatory. ", 50)
	require.Equal(t, 1250, len(text))

	c, err := NewRecursiveChunker(1000, 200)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.Document{ID: "doc", Path: "policy.pdf", Content: text})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first, second := chunks[0].Text, chunks[1].Text
	assert.Len(t, first, 1000)
	assert.True(t, strings.HasPrefix(second, first[len(first)-200:]))
	assert.Equal(t, 800, chunks[1].Offset)
	assert.Equal(t, "doc:1", chunks[1].ChunkID)
	assert.Equal(t, "policy.pdf", chunks[1].Path)
}

func TestChunk_EmptyAndWhitespace(t *testing.T) {
	c, err := NewRecursiveChunker(10, 2)
	require.NoError(t, err)
	for _, content := range []string{"", "   ", "\n\n\t"} {
		chunks, err := c.Chunk(domain.Document{ID: "d", Content: content})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c, err := NewRecursiveChunker(100, 10)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "A short policy."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short policy.", chunks[0].Text)
}

func TestChunk_PrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("word ", 10) + "\n\n"
	para2 := strings.Repeat("more ", 10)
	c, err := NewRecursiveChunker(60, 5)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: para1 + para2})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
}

func TestChunk_HardCutWithoutBoundary(t *testing.T) {
	text := strings.Repeat("x", 24)
	c, err := NewRecursiveChunker(10, 3)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: text})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 10, len(chunks[0].Text))
	assert.Equal(t, 7, chunks[1].Offset)
	assert.Equal(t, 14, chunks[2].Offset)
	assert.Equal(t, 10, len(chunks[2].Text))
}

func TestChunk_SizeAndOverlapProperty(t *testing.T) {
	text := strings.Repeat("Leave requests must be filed in advance. Approval is required!\n", 30) +
		"\n\nSection two: conduct rules apply é ü ñ on campus and online? Yes. " +
		strings.Repeat("abcdefghij", 40)
	cases := []struct{ size, overlap int }{
		{50, 0}, {50, 10}, {100, 99}, {200, 50}, {7, 3}, {1000, 200},
	}
	for _, tc := range cases {
		c, err := NewRecursiveChunker(tc.size, tc.overlap)
		require.NoError(t, err)
		chunks, err := c.Chunk(domain.Document{ID: "d", Content: text})
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for i, ch := range chunks {
			n := utf8.RuneCountInString(ch.Text)
			assert.Greater(t, n, 0)
			assert.LessOrEqual(t, n, tc.size)
			if i == 0 {
				continue
			}
			prev := []rune(chunks[i-1].Text)
			cur := []rune(ch.Text)
			require.GreaterOrEqual(t, len(cur), tc.overlap)
			assert.Equal(t, string(prev[len(prev)-tc.overlap:]), string(cur[:tc.overlap]),
				"size=%d overlap=%d chunk=%d", tc.size, tc.overlap, i)
		}
		last := chunks[len(chunks)-1]
		assert.True(t, strings.HasSuffix(text, last.Text))
	}
}

func TestChunkAll_FlattensInOrder(t *testing.T) {
	c, err := NewRecursiveChunker(100, 10)
	require.NoError(t, err)
	docs := []domain.Document{
		{ID: "a", Content: "First document."},
		{ID: "b", Content: ""},
		{ID: "c", Content: "Third document."},
	}
	chunks, err := ChunkAll(c, docs)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].DocumentID)
	assert.Equal(t, "c", chunks[1].DocumentID)
}

func TestChunk_NeverEmitsBlankChunks(t *testing.T) {
	texts := []string{
		"Attendance policy." + strings.Repeat(" ", 400) + "Signed by the registrar.",
		"Header\n" + strings.Repeat("\n", 300) + "Body text follows." + strings.Repeat(" \t", 120),
		strings.Repeat(" ", 90) + "lead" + strings.Repeat("\n\n", 70),
	}
	for _, text := range texts {
		for _, tc := range []struct{ size, overlap int }{{80, 10}, {20, 5}, {7, 3}} {
			c, err := NewRecursiveChunker(tc.size, tc.overlap)
			require.NoError(t, err)
			chunks, err := c.Chunk(domain.Document{ID: "d", Content: text})
			require.NoError(t, err)
			require.NotEmpty(t, chunks)
			for i, ch := range chunks {
				assert.NotEmpty(t, strings.TrimSpace(ch.Text), "size=%d chunk=%d", tc.size, i)
				assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), tc.size)
				assert.Equal(t, i, ch.Index)
				assert.Equal(t, ch.Text, string([]rune(text)[ch.Offset:ch.Offset+utf8.RuneCountInString(ch.Text)]))
			}
		}
	}

	c, err := NewRecursiveChunker(80, 10)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: texts[0]})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "Attendance policy."))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1].Text, "Signed by the registrar."))
}
