package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
	"github.com/MrWong99/pictalk/pkg/provider/embeddings/ollama"
)

// embedServer answers /api/embed with one canned vector per input, cycling
// through vectors.
func embedServer(t *testing.T, wantModel string, vectors [][]float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Model != wantModel {
			t.Errorf("model = %q, want %q", req.Model, wantModel)
		}
		out := make([][]float32, len(req.Input))
		for i := range req.Input {
			out[i] = vectors[i%len(vectors)]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": wantModel, "embeddings": out})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_EmptyModel(t *testing.T) {
	t.Parallel()

	if _, err := ollama.New("", ""); err == nil {
		t.Error("New with empty model: expected error, got nil")
	}
}

func TestEmbed_Single(t *testing.T) {
	t.Parallel()

	srv := embedServer(t, "tiny-embed", [][]float32{{0.1, 0.2, 0.3}})
	p, err := ollama.New(srv.URL, "tiny-embed")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vec, err := p.Embed(context.Background(), "gato")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if diff := cmp.Diff([]float32{0.1, 0.2, 0.3}, vec); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbedBatch(t *testing.T) {
	t.Parallel()

	srv := embedServer(t, "tiny-embed", [][]float32{{1, 0}, {0, 1}})
	p, err := ollama.New(srv.URL+"/", "tiny-embed")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vecs, err := p.EmbedBatch(context.Background(), []string{"gato", "perro"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if diff := cmp.Diff([][]float32{{1, 0}, {0, 1}}, vecs); diff != "" {
		t.Errorf("vectors mismatch (-want +got):\n%s", diff)
	}

	empty, err := p.EmbedBatch(context.Background(), nil)
	if err != nil || empty != nil {
		t.Errorf("EmbedBatch(nil) = (%v, %v), want (nil, nil)", empty, err)
	}
}

func TestEmbed_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := ollama.New(srv.URL, "missing-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "gato"); err == nil {
		t.Error("Embed against failing server: expected error, got nil")
	}
}

func TestDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		opts  []ollama.Option
		want  int
	}{
		{"nomic-embed-text", nil, 768},
		{"mxbai-embed-large:latest", nil, 1024},
		{"All-MiniLM", nil, 384},
		{"custom-model", nil, 0},
		{"custom-model", []ollama.Option{ollama.WithDimensions(512)}, 512},
	}
	for _, tc := range tests {
		p, err := ollama.New("", tc.model, tc.opts...)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.model, err)
		}
		if got := p.Dimensions(); got != tc.want {
			t.Errorf("%s: Dimensions() = %d, want %d", tc.model, got, tc.want)
		}
	}
}

func TestDimensions_LearnedFromReply(t *testing.T) {
	t.Parallel()

	srv := embedServer(t, "custom-model", [][]float32{{1, 2, 3, 4}})
	p, err := ollama.New(srv.URL, "custom-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "gato"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got := p.Dimensions(); got != 4 {
		t.Errorf("Dimensions() after first reply = %d, want 4", got)
	}
}

func TestEmbed_DeclaredDimensionsEnforced(t *testing.T) {
	t.Parallel()

	srv := embedServer(t, "nomic-embed-text", [][]float32{{1, 2}})
	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "gato"); !errors.Is(err, embeddings.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}
