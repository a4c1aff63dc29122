package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"storyrag/internal/domain"
)

// CharChunker splits a document on a separator and greedily packs the
// resulting units into chunks of at most chunkSize characters, carrying the
// trailing overlap characters of each chunk into the next one so context
// survives the split boundary. A single unit longer than chunkSize is kept
// whole rather than truncated.
type CharChunker struct {
	chunkSize int
	overlap   int
	separator string
}

func NewCharChunker(chunkSize, overlap int, separator string) (*CharChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidInput, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrInvalidInput, overlap, chunkSize)
	}
	if separator == "" {
		separator = "\n"
	}
	return &CharChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		separator: separator,
	}, nil
}

// Chunk splits doc.Text into overlapping chunks. Output order is stable:
// position within the document. Each chunk inherits the document title.
func (c *CharChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	units := strings.Split(doc.Text, c.separator)
	sepLen := utf8.RuneCountInString(c.separator)

	var chunks []domain.Chunk
	cur := ""        // accumulated chunk text, possibly starting with carried overlap
	hasUnits := false // cur holds at least one unit, not just the carry

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if hasUnits && utf8.RuneCountInString(cur)+sepLen+unitLen > c.chunkSize {
			chunks = append(chunks, domain.Chunk{Title: doc.Title, Text: cur})
			cur = TailRunes(cur, c.overlap)
			hasUnits = false
		}
		if !hasUnits && cur != "" && unitLen <= c.chunkSize {
			// Shrink the carried overlap so carry+separator+unit stays within
			// chunkSize; only a unit longer than chunkSize may exceed the bound.
			if room := c.chunkSize - unitLen - sepLen; utf8.RuneCountInString(cur) > room {
				cur = TailRunes(cur, room)
			}
		}
		if hasUnits || cur != "" {
			cur += c.separator
		}
		cur += unit
		hasUnits = true
	}
	if hasUnits {
		chunks = append(chunks, domain.Chunk{Title: doc.Title, Text: cur})
	}

	return chunks, nil
}

// ChunkSize returns the configured maximum chunk length in characters.
func (c *CharChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured carry-over length in characters.
func (c *CharChunker) Overlap() int { return c.overlap }

// TailRunes returns the last n runes of s, or s itself when shorter.
func TailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
