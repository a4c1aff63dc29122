package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"storyrag/internal/domain"
	"storyrag/internal/port"
)

// QdrantIndex keeps the entries in a remote Qdrant collection instead of a
// local file. Durability is server-side, so Persist is a no-op and Load only
// verifies that the collection exists with a matching dimension.
type QdrantIndex struct {
	embedder   port.Embedder
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu    sync.RWMutex
	ready bool
	count int
}

// QdrantOptions configures the remote index client.
type QdrantOptions struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewQdrantIndex(embedder port.Embedder, opts QdrantOptions) *QdrantIndex {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := opts.Collection
	if collection == "" {
		collection = "stories"
	}
	return &QdrantIndex{
		embedder:   embedder,
		url:        opts.URL,
		apiKey:     opts.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (x *QdrantIndex) Build(chunks []domain.Chunk) error {
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

	// Recreate the collection so a rebuild replaces the prior index.
	x.deleteCollection()
	if err := x.createCollection(); err != nil {
		return err
	}

	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     i,
			"vector": vectors[i],
			"payload": map[string]any{
				"title": chunks[i].Title,
				"text":  chunks[i].Text,
				"seq":   i,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := x.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", x.url, x.collection), body); err != nil {
		return err
	}

	x.mu.Lock()
	x.ready = true
	x.count = len(chunks)
	x.mu.Unlock()
	return nil
}

func (x *QdrantIndex) Persist() error {
	return nil
}

func (x *QdrantIndex) Load() error {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
			PointsCount int `json:"points_count"`
		} `json:"result"`
		Status string `json:"status"`
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/collections/%s", x.url, x.collection), nil)
	if err != nil {
		return err
	}
	x.setAuth(req)
	httpResp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: collection %s", domain.ErrIndexNotFound, x.collection)
	}
	if httpResp.StatusCode >= 300 {
		return fmt.Errorf("qdrant GET collection failed: %s", httpResp.Status)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	if size := resp.Result.Config.Params.Vectors.Size; size != x.embedder.Dimension() {
		return fmt.Errorf("%w: collection dimension %d, embedder dimension %d", domain.ErrFormat, size, x.embedder.Dimension())
	}

	x.mu.Lock()
	x.ready = true
	x.count = resp.Result.PointsCount
	x.mu.Unlock()
	return nil
}

func (x *QdrantIndex) Search(query string, k int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	ready := x.ready
	x.mu.RUnlock()
	if !ready {
		return nil, fmt.Errorf("%w: build or load an index first", domain.ErrNotInitialized)
	}
	if k <= 0 {
		return nil, nil
	}

	vector, err := x.embedder.EmbedQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := x.postJSON(fmt.Sprintf("%s/collections/%s/points/search", x.url, x.collection), req, &resp); err != nil {
		return nil, err
	}

	type hit struct {
		chunk domain.Chunk
		score float64
		seq   int
	}
	hits := make([]hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		h := hit{score: r.Score, seq: len(hits)}
		if v, ok := r.Payload["title"].(string); ok {
			h.chunk.Title = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			h.chunk.Text = v
		}
		if v, ok := r.Payload["seq"].(float64); ok {
			h.seq = int(v)
		}
		hits = append(hits, h)
	}
	// Qdrant leaves the order of equal scores unspecified; the seq payload
	// written at build time restores insertion order on ties.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].seq < hits[j].seq
	})

	results := make([]domain.ScoredChunk, len(hits))
	for i, h := range hits {
		results[i] = domain.ScoredChunk{Chunk: h.chunk, Score: h.score}
	}
	return results, nil
}

func (x *QdrantIndex) Clear() error {
	x.deleteCollection()
	x.mu.Lock()
	x.ready = false
	x.count = 0
	x.mu.Unlock()
	return nil
}

func (x *QdrantIndex) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

func (x *QdrantIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

func (x *QdrantIndex) createCollection() error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     x.embedder.Dimension(),
			"distance": "Cosine",
		},
	}
	return x.putJSON(fmt.Sprintf("%s/collections/%s", x.url, x.collection), body)
}

func (x *QdrantIndex) deleteCollection() {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/collections/%s", x.url, x.collection), nil)
	if err != nil {
		return
	}
	x.setAuth(req)
	if resp, err := x.client.Do(req); err == nil {
		resp.Body.Close()
	}
}

func (x *QdrantIndex) setAuth(req *http.Request) {
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}
}

func (x *QdrantIndex) putJSON(url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	x.setAuth(req)
	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (x *QdrantIndex) postJSON(url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	x.setAuth(req)
	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
