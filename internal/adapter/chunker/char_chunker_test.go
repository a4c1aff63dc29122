package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"storyrag/internal/domain"
)

func TestNewCharChunkerValidation(t *testing.T) {
	cases := []struct {
		name      string
		size      int
		overlap   int
		wantError bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCharChunker(tc.size, tc.overlap, "\n")
			if tc.wantError {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestChunkShortDocument(t *testing.T) {
	c, err := NewCharChunker(1000, 200, "\n")
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{
		Title: "Tale",
		Text:  "Alice met Bob. Alice helped Bob escape the forest.",
	}

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("chunk text differs from document text:\n%q\n%q", chunks[0].Text, doc.Text)
	}
	if chunks[0].Title != "Tale" {
		t.Errorf("expected title 'Tale', got %q", chunks[0].Title)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c, err := NewCharChunker(100, 10, "\n")
	if err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"", "   \n\t\n  "} {
		chunks, err := c.Chunk(domain.Document{Title: "Empty", Text: text})
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != 0 {
			t.Errorf("expected no chunks for %q, got %d", text, len(chunks))
		}
	}
}

// rejoin reverses the chunking: the first chunk verbatim, then every
// following chunk minus the overlap carried from its predecessor.
func rejoin(chunks []domain.Chunk, overlap int, sep string) string {
	if len(chunks) == 0 {
		return ""
	}
	joined := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		carry := TailRunes(chunks[i-1].Text, overlap)
		rest := chunks[i].Text[len(carry):]
		if carry == "" {
			joined += sep
		}
		joined += rest
	}
	return joined
}

func TestChunkRoundTrip(t *testing.T) {
	lines := []string{
		"Alice lived at the edge of the forest.",
		"Bob was lost among the old oaks.",
		"One morning Alice heard him calling.",
		"She followed the voice past the creek.",
		"Together they found the hidden path.",
		"By nightfall both were safely home.",
	}
	text := strings.Join(lines, "\n")

	for _, overlap := range []int{0, 10, 25} {
		c, err := NewCharChunker(80, overlap, "\n")
		if err != nil {
			t.Fatal(err)
		}

		chunks, err := c.Chunk(domain.Document{Title: "Forest", Text: text})
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) < 2 {
			t.Fatalf("overlap=%d: expected multiple chunks, got %d", overlap, len(chunks))
		}

		if got := rejoin(chunks, overlap, "\n"); got != text {
			t.Errorf("overlap=%d: round trip mismatch:\n%q\n%q", overlap, got, text)
		}
	}
}

func TestChunkSizeBound(t *testing.T) {
	c, err := NewCharChunker(60, 15, "\n")
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("A modest sentence on its own line.\n", 10)
	chunks, err := c.Chunk(domain.Document{Title: "Bound", Text: text})
	if err != nil {
		t.Fatal(err)
	}

	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Text); n > 60 {
			t.Errorf("chunk %d exceeds size bound: %d chars", i, n)
		}
	}
}

func TestChunkSizeBoundWithLargeOverlap(t *testing.T) {
	c, err := NewCharChunker(100, 60, "\n")
	if err != nil {
		t.Fatal(err)
	}

	// Units nearly as long as the chunk size: the full 60-char carry cannot
	// be kept without breaking the bound, so it must be shrunk.
	a := strings.Repeat("a", 90)
	b := strings.Repeat("b", 90)
	d := strings.Repeat("d", 90)
	text := a + "\n" + b + "\n" + d

	chunks, err := c.Chunk(domain.Document{Title: "Dense", Text: text})
	if err != nil {
		t.Fatal(err)
	}

	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Text); n > 100 {
			t.Errorf("chunk %d exceeds size bound: %d chars", i, n)
		}
	}

	want := []string{
		a,
		strings.Repeat("a", 9) + "\n" + b,
		strings.Repeat("b", 9) + "\n" + d,
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i].Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i].Text, want[i])
		}
	}
}

func TestChunkOversizedUnitKeptWhole(t *testing.T) {
	c, err := NewCharChunker(50, 10, "\n")
	if err != nil {
		t.Fatal(err)
	}

	long := strings.Repeat("no separator anywhere in this very long unit ", 4)
	text := "short line\n" + long + "\nanother short line"

	chunks, err := c.Chunk(domain.Document{Title: "Long", Text: text})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, ch := range chunks {
		if strings.Contains(ch.Text, long) {
			found = true
			break
		}
	}
	if !found {
		t.Error("oversized unit was truncated or split across chunks")
	}

	if got := rejoin(chunks, 10, "\n"); got != text {
		t.Errorf("round trip mismatch with oversized unit:\n%q\n%q", got, text)
	}
}

func TestChunkOverlapCarried(t *testing.T) {
	c, err := NewCharChunker(40, 12, "\n")
	if err != nil {
		t.Fatal(err)
	}

	text := "first line of the story\nsecond line of the story\nthird line of the story"
	chunks, err := c.Chunk(domain.Document{Title: "Carry", Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		carry := TailRunes(chunks[i-1].Text, 12)
		if !strings.HasPrefix(chunks[i].Text, carry) {
			t.Errorf("chunk %d does not start with the previous chunk's tail %q: %q", i, carry, chunks[i].Text)
		}
	}
}
