package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"storyrag/internal/domain"
	"storyrag/internal/port"
)

// IngestUseCase reads story files, chunks them and builds the vector index.
type IngestUseCase struct {
	chunker port.Chunker
	index   port.VectorIndex
	logger  *zap.Logger
}

func NewIngestUseCase(chunker port.Chunker, index port.VectorIndex, logger *zap.Logger) *IngestUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		chunker: chunker,
		index:   index,
		logger:  logger,
	}
}

// IngestResult reports what an ingest run did. Callers check the fields;
// Summary renders the human-readable message for interactive surfaces.
type IngestResult struct {
	FilesRead     int
	FilesSkipped  int
	ChunksCreated int
	Warnings      []string
}

func (r *IngestResult) Summary() string {
	msg := fmt.Sprintf("Indexed %d stories into %d chunks", r.FilesRead, r.ChunksCreated)
	if r.FilesSkipped > 0 {
		msg += fmt.Sprintf(" (%d files skipped)", r.FilesSkipped)
	}
	return msg
}

// Ingest reads each file as UTF-8 text, splits it into chunks and builds and
// persists the index. Files that cannot be read or decoded are skipped with
// a warning; the run only fails when no document survives.
func (u *IngestUseCase) Ingest(paths []string) (*IngestResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no story files provided", domain.ErrInvalidInput)
	}

	result := &IngestResult{}

	var documents []domain.Document
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			u.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			result.FilesSkipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if !utf8.Valid(data) {
			u.logger.Warn("skipping file with invalid UTF-8", zap.String("path", path))
			result.FilesSkipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: not valid UTF-8 text", path))
			continue
		}

		base := filepath.Base(path)
		title := strings.TrimSuffix(base, filepath.Ext(base))
		documents = append(documents, domain.Document{Title: title, Text: string(data)})
		result.FilesRead++
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: no readable documents in provided files", domain.ErrInvalidInput)
	}

	// Chunk in document order, then position, so the index is reproducible.
	var chunks []domain.Chunk
	for _, doc := range documents {
		docChunks, err := u.chunker.Chunk(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %q: %w", doc.Title, err)
		}
		chunks = append(chunks, docChunks...)
	}
	result.ChunksCreated = len(chunks)

	if err := u.index.Build(chunks); err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	if err := u.index.Persist(); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	u.logger.Info("ingest complete",
		zap.Int("files", result.FilesRead),
		zap.Int("skipped", result.FilesSkipped),
		zap.Int("chunks", result.ChunksCreated))

	return result, nil
}

// Clear removes the index and its persisted form.
func (u *IngestUseCase) Clear() error {
	return u.index.Clear()
}
