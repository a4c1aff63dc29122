package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// MistralEmbedder calls the Mistral embeddings endpoint (OpenAI-compatible
// wire format). Document and query embeddings use the same model but stay
// separate entry points so a provider-specific query prompt can be added
// without touching callers.
type MistralEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	batchSize  int
	maxRetries int
	client     *http.Client
}

// Options configures the embeddings client. Zero values fall back to the
// mistral-embed defaults.
type Options struct {
	Model      string
	BaseURL    string
	APIKeyEnv  string
	Dimension  int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewMistralEmbedder(opts Options) (*MistralEmbedder, error) {
	if opts.APIKeyEnv == "" {
		opts.APIKeyEnv = "MISTRAL_API_KEY"
	}
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}

	if opts.Model == "" {
		opts.Model = "mistral-embed"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.mistral.ai/v1"
	}
	if opts.Dimension == 0 {
		opts.Dimension = 1024 // mistral-embed
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return &MistralEmbedder{
		apiKey:     apiKey,
		model:      opts.Model,
		baseURL:    opts.BaseURL,
		dimension:  opts.Dimension,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (e *MistralEmbedder) Embed(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedBatch(texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

func (e *MistralEmbedder) EmbedQuery(text string) ([]float32, error) {
	embeddings, err := e.embedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return embeddings[0], nil
}

func (e *MistralEmbedder) embedBatch(texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := postWithRetry(e.client, e.baseURL+"/embeddings", e.apiKey, jsonData, e.maxRetries)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview, err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}

func (e *MistralEmbedder) Dimension() int {
	return e.dimension
}

func (e *MistralEmbedder) ModelName() string {
	return e.model
}

// postWithRetry posts jsonData and retries transport errors, 429 and 5xx with
// exponential backoff, honoring Retry-After. Other 4xx (auth, quota
// misconfiguration) fail immediately.
func postWithRetry(client *http.Client, url, apiKey string, jsonData []byte, maxRetries int) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequest("POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, lastErr
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			if attempt < maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
			if attempt < maxRetries {
				time.Sleep(retryAfter(resp, attempt))
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, lastErr
}

func retryAfter(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// MockEmbedder produces deterministic pseudo-embeddings for tests and
// offline runs.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = e.vector(texts[i])
	}
	return embeddings, nil
}

func (e *MockEmbedder) EmbedQuery(text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *MockEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	for j, r := range text {
		if j >= e.dimension {
			break
		}
		v[j] = float32(r) / 1000.0
	}
	return v
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
