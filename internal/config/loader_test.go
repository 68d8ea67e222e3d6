package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/pictalk/internal/config"
)

func TestValidate_ClassifierRequiresProvider(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "embedding without embeddings provider",
			yaml:    "classifier:\n  intent: embedding\n",
			wantErr: "providers.embeddings",
		},
		{
			name:    "llm without llm provider",
			yaml:    "classifier:\n  emotion: llm\n",
			wantErr: "providers.llm",
		},
		{
			name:    "unknown backend",
			yaml:    "classifier:\n  intent: bert\n",
			wantErr: "classifier.intent",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error should mention %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_ClassifierWithProvidersIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  embeddings:
    name: ollama
classifier:
  intent: embedding
  emotion: llm
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DialogueRanges(t *testing.T) {
	t.Parallel()
	yaml := `
dialogue:
  confidence_threshold: 1.5
  parrot_overlap: -0.1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"confidence_threshold", "parrot_overlap"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_Fallbacks(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm_fallbacks:
    - name: ollama
    - model: llama3
  circuit_breaker:
    max_failures: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{
		"providers.llm_fallbacks requires providers.llm",
		"providers.llm_fallbacks[1].name",
		"max_failures",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_FallbacksValid(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  llm_fallbacks:
    - name: anyllm
      model: mistral:mistral-small-latest
  circuit_breaker:
    max_failures: 3
    reset_timeout: 45s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Providers.CircuitBreaker.ResetTimeout.Seconds(); got != 45 {
		t.Errorf("reset_timeout: got %vs, want 45s", got)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "anyllm" {
		t.Errorf("llm_fallbacks: got %+v", cfg.Providers.LLMFallbacks)
	}
}

func TestValidate_TLSNeedsBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "tls") {
		t.Errorf("expected tls error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pictalk.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Catalog.Path != "data/catalog.json" {
		t.Errorf("catalog.path: got %q", cfg.Catalog.Path)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	for kind, name := range map[string]string{
		"llm":           "openai",
		"embeddings":    "ollama",
		"transcription": "whisper",
	} {
		if !slices.Contains(config.ValidProviderNames[kind], name) {
			t.Errorf("ValidProviderNames[%q] should contain %q", kind, name)
		}
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load(example.yaml): %v", err)
	}
	if cfg.Providers.Transcription.Name != "whisper" || cfg.Classifier.Intent != config.ClassifierLexical {
		t.Errorf("unexpected example config: %+v", cfg.Providers)
	}
	if cfg.Server.ShutdownTimeout != config.DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.Server.ShutdownTimeout, config.DefaultShutdownTimeout)
	}
}
