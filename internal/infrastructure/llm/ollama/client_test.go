package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contextforge/contextforge/internal/core/domain"
)

func TestGenerateSendsSystemPromptAndTokenLimit(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":" answer text "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	out, err := gen.Generate(context.Background(), "system role", "user prompt", 321)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "answer text" {
		t.Fatalf("expected trimmed response, got %q", out)
	}
	if payload["system"] != "system role" || payload["prompt"] != "user prompt" {
		t.Fatalf("prompts not forwarded: %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options == nil || options["num_predict"] != float64(321) {
		t.Fatalf("token limit not forwarded: %v", payload["options"])
	}
}

func TestGenerateWrapsProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	_, err := gen.Generate(context.Background(), "", "prompt", 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestEmbedForwardsBatchInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Input) != 2 {
			t.Fatalf("expected 2 inputs, got %v", payload.Input)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1],[0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
}

func TestEmbedQueryRejectsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.EmbedQuery(context.Background(), "query")
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider for empty embedding, got %v", err)
	}
}
