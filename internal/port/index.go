package port

import "storyrag/internal/domain"

// VectorIndex stores (chunk, embedding) entries and serves nearest-neighbor
// search over them. Implementations rank by cosine similarity and break score
// ties by insertion order.
//
// Lifecycle: Build replaces any previous index in memory, Persist writes it
// out, Load replaces memory from the persisted form, Clear discards both.
// One operation runs at a time; concurrent build+search is not supported.
type VectorIndex interface {
	// Build embeds every chunk and replaces the in-memory index. A provider
	// failure aborts the whole build: no partial index is kept and the
	// previous one stays untouched.
	Build(chunks []domain.Chunk) error

	// Persist writes the current entries to durable storage atomically.
	Persist() error

	// Load replaces the in-memory index from durable storage. Fails with
	// domain.ErrIndexNotFound when nothing was persisted and domain.ErrFormat
	// when the stored dimension does not match the embedder's.
	Load() error

	// Search embeds the query and returns the k best chunks in descending
	// similarity order. Fails with domain.ErrNotInitialized before any
	// Build or Load.
	Search(query string, k int) ([]domain.ScoredChunk, error)

	// Clear removes the persisted form if present and drops the in-memory
	// entries. Idempotent.
	Clear() error

	// Ready reports whether an index is loaded in memory.
	Ready() bool

	// Count returns the number of indexed entries.
	Count() int
}
