package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, url string) *MistralClient {
	t.Helper()
	t.Setenv("TEST_API_KEY", "test-key")
	c, err := NewMistralClient(Options{
		Model:     "mistral-small-latest",
		BaseURL:   url,
		APIKeyEnv: "TEST_API_KEY",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
			return
		}
		resp := chatResponse{}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: `{"name": "Alice"}`}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	out, err := c.Generate("describe Alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"name": "Alice"}` {
		t.Errorf("Generate() = %q", out)
	}

	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("request messages = %+v, want single user message", got.Messages)
	}
	if got.Temperature != 0 {
		t.Errorf("temperature = %f, want 0", got.Temperature)
	}
}

func TestGenerateWithSystem(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
			return
		}
		resp := chatResponse{}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: "ok"}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.GenerateWithSystem("be terse", "describe Alice"); err != nil {
		t.Fatalf("GenerateWithSystem() error = %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("request messages = %+v, want system then user", got.Messages)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Generate("describe Alice"); err == nil {
		t.Error("Generate() with no choices succeeded")
	}
}
