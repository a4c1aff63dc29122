package index

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyrag/internal/domain"
)

func qdrantStub(t *testing.T, dimension int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/stories":
			fmt.Fprintf(w, `{"result": {"config": {"params": {"vectors": {"size": %d}}}, "points_count": 3}, "status": "ok"}`, dimension)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/stories/points/search":
			// Two equal scores returned out of insertion order.
			fmt.Fprint(w, `{"result": [
				{"score": 0.9, "payload": {"title": "tale", "text": "later", "seq": 2}},
				{"score": 0.9, "payload": {"title": "tale", "text": "earlier", "seq": 0}},
				{"score": 0.8, "payload": {"title": "tale", "text": "third", "seq": 1}}
			]}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestQdrantSearchTieBreakByInsertionOrder(t *testing.T) {
	srv := qdrantStub(t, 3)
	defer srv.Close()

	idx := NewQdrantIndex(testEmbedder(), QdrantOptions{URL: srv.URL})
	if err := idx.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	results, err := idx.Search("query", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}
	want := []string{"earlier", "later", "third"}
	for i := range want {
		if results[i].Chunk.Text != want[i] {
			t.Errorf("result %d = %q, want %q", i, results[i].Chunk.Text, want[i])
		}
	}
}

func TestQdrantLoadDimensionMismatch(t *testing.T) {
	srv := qdrantStub(t, 7)
	defer srv.Close()

	idx := NewQdrantIndex(testEmbedder(), QdrantOptions{URL: srv.URL})
	if err := idx.Load(); !errors.Is(err, domain.ErrFormat) {
		t.Errorf("Load() with mismatched collection dimension error = %v, want ErrFormat", err)
	}
}
