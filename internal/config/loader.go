package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":           {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings":    {"openai", "ollama"},
	"transcription": {"whisper"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	p := cfg.Providers
	validateProviderName("llm", p.LLM.Name)
	validateProviderName("embeddings", p.Embeddings.Name)
	validateProviderName("transcription", p.Transcription.Name)
	for _, fb := range []struct {
		kind    string
		primary ProviderEntry
		entries []ProviderEntry
	}{
		{"llm", p.LLM, p.LLMFallbacks},
		{"embeddings", p.Embeddings, p.EmbeddingsFallbacks},
		{"transcription", p.Transcription, p.TranscriptionFallbacks},
	} {
		if len(fb.entries) > 0 && fb.primary.Name == "" {
			errs = append(errs, fmt.Errorf("providers.%s_fallbacks requires providers.%s", fb.kind, fb.kind))
		}
		for i, e := range fb.entries {
			if e.Name == "" {
				errs = append(errs, fmt.Errorf("providers.%s_fallbacks[%d].name is required", fb.kind, i))
				continue
			}
			validateProviderName(fb.kind, e.Name)
		}
	}
	if p.CircuitBreaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("providers.circuit_breaker.max_failures %d must be positive", p.CircuitBreaker.MaxFailures))
	}
	if p.CircuitBreaker.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("providers.circuit_breaker.reset_timeout %s must be positive", p.CircuitBreaker.ResetTimeout))
	}

	d := cfg.Dialogue
	if d.DrillSize < 0 {
		errs = append(errs, fmt.Errorf("dialogue.drill_size %d must be positive", d.DrillSize))
	}
	if d.DrillRounds < 0 {
		errs = append(errs, fmt.Errorf("dialogue.drill_rounds %d must be positive", d.DrillRounds))
	}
	if d.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("dialogue.max_tokens %d must be positive", d.MaxTokens))
	}
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("dialogue.confidence_threshold %.2f is out of range [0, 1]", d.ConfidenceThreshold))
	}
	if d.ParrotOverlap < 0 || d.ParrotOverlap > 1 {
		errs = append(errs, fmt.Errorf("dialogue.parrot_overlap %.2f is out of range [0, 1]", d.ParrotOverlap))
	}

	for _, c := range []struct {
		field string
		kind  ClassifierKind
	}{
		{"classifier.intent", cfg.Classifier.Intent},
		{"classifier.emotion", cfg.Classifier.Emotion},
	} {
		if c.kind == "" {
			continue
		}
		if !c.kind.IsValid() {
			errs = append(errs, fmt.Errorf("%s %q is invalid; valid values: lexical, embedding, llm", c.field, c.kind))
			continue
		}
		if c.kind == ClassifierEmbedding && cfg.Providers.Embeddings.Name == "" {
			errs = append(errs, fmt.Errorf("%s %q requires providers.embeddings", c.field, c.kind))
		}
		if c.kind == ClassifierLLM && cfg.Providers.LLM.Name == "" {
			errs = append(errs, fmt.Errorf("%s %q requires providers.llm", c.field, c.kind))
		}
	}

	if cfg.Catalog.Path == "" {
		slog.Warn("catalog.path is empty; the symbol library will be empty")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; open dialogue will use the fallback text")
	}
	if cfg.Discord.Token != "" && cfg.Discord.GuildID == "" {
		slog.Warn("discord.guild_id is empty; slash commands will be registered globally")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
