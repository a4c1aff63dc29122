package usecase

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyrag/internal/adapter/chunker"
	"storyrag/internal/domain"
)

// recordingIndex captures what the ingest pipeline fed it.
type recordingIndex struct {
	built     []domain.Chunk
	persisted bool
	cleared   bool
	buildErr  error
}

func (x *recordingIndex) Build(chunks []domain.Chunk) error {
	if x.buildErr != nil {
		return x.buildErr
	}
	x.built = chunks
	return nil
}

func (x *recordingIndex) Persist() error { x.persisted = true; return nil }
func (x *recordingIndex) Load() error    { return domain.ErrIndexNotFound }
func (x *recordingIndex) Search(query string, k int) ([]domain.ScoredChunk, error) {
	return nil, nil
}
func (x *recordingIndex) Clear() error { x.cleared = true; return nil }
func (x *recordingIndex) Ready() bool  { return x.built != nil }
func (x *recordingIndex) Count() int   { return len(x.built) }

func newTestChunker(t *testing.T) *chunker.CharChunker {
	t.Helper()
	c, err := chunker.NewCharChunker(50, 10, "\n")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func writeStory(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestEmptyPaths(t *testing.T) {
	uc := NewIngestUseCase(newTestChunker(t), &recordingIndex{}, nil)
	_, err := uc.Ingest(nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Ingest(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestIngestBuildsAndPersists(t *testing.T) {
	dir := t.TempDir()
	a := writeStory(t, dir, "alice.txt", "Alice met Bob near the river.\nThey walked home.")
	b := writeStory(t, dir, "bob.txt", "Bob lived alone.")

	idx := &recordingIndex{}
	uc := NewIngestUseCase(newTestChunker(t), idx, nil)

	result, err := uc.Ingest([]string{a, b})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.FilesRead != 2 || result.FilesSkipped != 0 {
		t.Errorf("result = %+v, want 2 read and 0 skipped", result)
	}
	if !idx.persisted {
		t.Error("index was not persisted")
	}
	if len(idx.built) != result.ChunksCreated {
		t.Errorf("built %d chunks, result says %d", len(idx.built), result.ChunksCreated)
	}
	// Titles come from file names without the extension.
	if idx.built[0].Title != "alice" {
		t.Errorf("first chunk title = %q, want alice", idx.built[0].Title)
	}
	last := idx.built[len(idx.built)-1]
	if last.Title != "bob" {
		t.Errorf("last chunk title = %q, want bob", last.Title)
	}
}

func TestIngestSkipsUnreadableAndBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeStory(t, dir, "good.txt", "A valid little story.")
	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte{0xff, 0xfe, 0xfd}, 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.txt")

	idx := &recordingIndex{}
	uc := NewIngestUseCase(newTestChunker(t), idx, nil)

	result, err := uc.Ingest([]string{good, bad, missing})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.FilesRead != 1 {
		t.Errorf("FilesRead = %d, want 1", result.FilesRead)
	}
	if result.FilesSkipped != 2 {
		t.Errorf("FilesSkipped = %d, want 2", result.FilesSkipped)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("Warnings = %v, want two entries", result.Warnings)
	}
	if !idx.persisted {
		t.Error("index was not persisted despite one readable file")
	}
}

func TestIngestAllFilesSkipped(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte{0xff, 0xfe}, 0644); err != nil {
		t.Fatal(err)
	}

	uc := NewIngestUseCase(newTestChunker(t), &recordingIndex{}, nil)
	_, err := uc.Ingest([]string{bad})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Ingest() with only unreadable files error = %v, want ErrInvalidInput", err)
	}
}

func TestIngestBuildFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeStory(t, dir, "a.txt", "some text")

	idx := &recordingIndex{buildErr: errors.New("provider down")}
	uc := NewIngestUseCase(newTestChunker(t), idx, nil)

	_, err := uc.Ingest([]string{a})
	if err == nil || !strings.Contains(err.Error(), "provider down") {
		t.Errorf("Ingest() error = %v, want wrapped build failure", err)
	}
	if idx.persisted {
		t.Error("index persisted after failed build")
	}
}

func TestIngestResultSummary(t *testing.T) {
	r := &IngestResult{FilesRead: 3, ChunksCreated: 12}
	if got := r.Summary(); got != "Indexed 3 stories into 12 chunks" {
		t.Errorf("Summary() = %q", got)
	}
	r.FilesSkipped = 1
	if got := r.Summary(); got != "Indexed 3 stories into 12 chunks (1 files skipped)" {
		t.Errorf("Summary() with skips = %q", got)
	}
}

func TestIngestClearDelegates(t *testing.T) {
	idx := &recordingIndex{}
	uc := NewIngestUseCase(newTestChunker(t), idx, nil)
	if err := uc.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if !idx.cleared {
		t.Error("Clear() did not reach the index")
	}
}
