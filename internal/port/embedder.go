package port

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates document-side embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(texts []string) ([][]float32, error)

	// EmbedQuery generates the query-side embedding for a search string.
	// Kept separate from Embed because some providers prompt queries
	// differently from documents.
	EmbedQuery(text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
