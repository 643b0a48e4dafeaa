package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"policyrag/internal/domain"
)

// defaultSeparators are tried in priority order: paragraph, line, sentence, word.
var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// RecursiveChunker splits text into windows of at most chunkSize runes.
// Each window ends on the highest-priority natural boundary available and the
// next window starts exactly chunkOverlap runes before that end.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   [][]rune
}

// NewRecursiveChunker validates the window parameters and returns a chunker.
func NewRecursiveChunker(chunkSize, chunkOverlap int) (*RecursiveChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	seps := make([][]rune, len(defaultSeparators))
	for i, s := range defaultSeparators {
		seps[i] = []rune(s)
	}
	return &RecursiveChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: seps}, nil
}

// ChunkSize returns the maximum chunk length in runes.
func (c *RecursiveChunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the overlap between consecutive chunks in runes.
func (c *RecursiveChunker) ChunkOverlap() int { return c.chunkOverlap }

// Chunk splits a document. Whitespace-only windows are dropped, so a
// whitespace-only document yields no chunks.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	text := []rune(document.Content)
	var chunks []domain.Chunk
	start := 0
	idx := 0
	for start < len(text) {
		end := len(text)
		if end-start > c.chunkSize {
			end = c.boundary(text, start)
		}
		// A whitespace run longer than the window yields blank windows.
		if window := string(text[start:end]); strings.TrimSpace(window) != "" {
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    document.ID + ":" + strconv.Itoa(idx),
				Path:       document.Path,
				Text:       window,
				Index:      idx,
				Offset:     start,
			})
			idx++
		}
		if end == len(text) {
			break
		}
		start = end - c.chunkOverlap
	}
	return chunks, nil
}

// boundary picks the end of the window starting at start. Candidates lie in
// (start+overlap, start+size] so every window advances.
func (c *RecursiveChunker) boundary(text []rune, start int) int {
	limit := start + c.chunkSize
	floor := start + c.chunkOverlap
	for _, sep := range c.separators {
		// b is the position just after the separator.
		for b := limit; b > floor; b-- {
			if b-len(sep) < start {
				break
			}
			if hasRunesAt(text, b-len(sep), sep) {
				return b
			}
		}
	}
	return limit
}

func hasRunesAt(text []rune, pos int, sep []rune) bool {
	if pos < 0 || pos+len(sep) > len(text) {
		return false
	}
	for i, r := range sep {
		if text[pos+i] != r {
			return false
		}
	}
	return true
}

// ChunkAll chunks every document in order and flattens the result.
func ChunkAll(c domain.Chunker, documents []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for _, d := range documents {
		chunks, err := c.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}
