package index

import (
	"fmt"
	"sync"

	"storyrag/internal/domain"
	"storyrag/internal/port"
)

// MemoryIndex is a volatile VectorIndex with no durable form. Persist is a
// no-op and Load always reports that nothing was persisted. Useful for tests
// and throwaway sessions.
type MemoryIndex struct {
	embedder port.Embedder

	mu      sync.RWMutex
	entries []entry
	ready   bool
}

func NewMemoryIndex(embedder port.Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder}
}

func (x *MemoryIndex) Build(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: build requires at least one chunk", domain.ErrEmptyInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := x.embedder.Embed(texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]entry, len(chunks))
	for i := range chunks {
		entries[i] = entry{chunk: chunks[i], vector: vectors[i]}
	}

	x.mu.Lock()
	x.entries = entries
	x.ready = true
	x.mu.Unlock()
	return nil
}

func (x *MemoryIndex) Persist() error {
	return nil
}

func (x *MemoryIndex) Load() error {
	return fmt.Errorf("%w: memory index has no persisted form", domain.ErrIndexNotFound)
}

func (x *MemoryIndex) Search(query string, k int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return nil, fmt.Errorf("%w: build an index first", domain.ErrNotInitialized)
	}
	if k <= 0 {
		return nil, nil
	}

	vector, err := x.embedder.EmbedQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return rankEntries(x.entries, vector, k), nil
}

func (x *MemoryIndex) Clear() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = nil
	x.ready = false
	return nil
}

func (x *MemoryIndex) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

func (x *MemoryIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
