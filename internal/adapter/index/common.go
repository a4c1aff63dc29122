package index

import (
	"math"
	"sort"

	"storyrag/internal/domain"
)

// entry is one indexed chunk with its embedding, kept in insertion order.
type entry struct {
	chunk  domain.Chunk
	vector []float32
}

// rankEntries scores every entry against the query vector by cosine
// similarity and returns the k best in descending order. The sort is stable
// so equal scores keep insertion order. k larger than the entry count
// returns everything.
func rankEntries(entries []entry, query []float32, k int) []domain.ScoredChunk {
	scored := make([]domain.ScoredChunk, len(entries))
	for i, e := range entries {
		scored[i] = domain.ScoredChunk{
			Chunk: e.chunk,
			Score: cosineSimilarity(query, e.vector),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
