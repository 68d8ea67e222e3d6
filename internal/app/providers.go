package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/pictalk/internal/config"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/internal/resilience"
	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
	"github.com/MrWong99/pictalk/pkg/provider/llm"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// Providers holds one backend per capability. Nil means not configured.
// Backends built by [BuildProviders] sit behind circuit breakers even
// without configured fallbacks.
type Providers struct {
	LLM         llm.Provider
	Embeddings  embeddings.Provider
	Transcriber stt.Transcriber

	// Breakers lists the circuit breakers per capability ("llm",
	// "embeddings", "transcription"), for readiness reporting.
	Breakers map[string][]*resilience.CircuitBreaker
}

// BuildProviders instantiates the providers named in cfg through reg and
// chains each primary with its configured fallbacks. Names without a
// registered factory are skipped with a warning.
func BuildProviders(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*Providers, error) {
	ps := &Providers{Breakers: make(map[string][]*resilience.CircuitBreaker)}
	pc := cfg.Providers
	fcfg := func(kind string) resilience.FallbackConfig {
		return resilience.FallbackConfig{
			Kind: kind,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				MaxFailures:   pc.CircuitBreaker.MaxFailures,
				ResetTimeout:  pc.CircuitBreaker.ResetTimeout,
				OnStateChange: breakerMetrics(metrics),
			},
		}
	}

	if pc.LLM.Name != "" {
		primary, err := create("llm", pc.LLM, reg.CreateLLM)
		if err != nil {
			return nil, err
		}
		if primary != nil {
			f := resilience.NewGeneratorFallback(primary, pc.LLM.Name, fcfg("llm"))
			for _, e := range pc.LLMFallbacks {
				p, err := create("llm", e, reg.CreateLLM)
				if err != nil {
					return nil, err
				}
				if p != nil {
					f.AddFallback(entryName(e), p)
				}
			}
			ps.LLM = f
			ps.Breakers["llm"] = f.Group().Breakers()
		}
	}

	if pc.Embeddings.Name != "" {
		primary, err := create("embeddings", pc.Embeddings, reg.CreateEmbeddings)
		if err != nil {
			return nil, err
		}
		if primary != nil {
			f := resilience.NewEmbeddingsFallback(primary, pc.Embeddings.Name, fcfg("embeddings"))
			for _, e := range pc.EmbeddingsFallbacks {
				p, err := create("embeddings", e, reg.CreateEmbeddings)
				if err != nil {
					return nil, err
				}
				if p == nil {
					continue
				}
				if err := f.AddFallback(entryName(e), p); err != nil {
					return nil, fmt.Errorf("app: embeddings fallback %q: %w", e.Name, err)
				}
			}
			ps.Embeddings = f
			ps.Breakers["embeddings"] = f.Group().Breakers()
		}
	}

	if pc.Transcription.Name != "" {
		primary, err := create("transcription", pc.Transcription, reg.CreateTranscriber)
		if err != nil {
			return nil, err
		}
		if primary != nil {
			f := resilience.NewTranscriberFallback(primary, pc.Transcription.Name, fcfg("transcription"))
			for _, e := range pc.TranscriptionFallbacks {
				p, err := create("transcription", e, reg.CreateTranscriber)
				if err != nil {
					return nil, err
				}
				if p != nil {
					f.AddFallback(entryName(e), p)
				}
			}
			ps.Transcriber = f
			ps.Breakers["transcription"] = f.Group().Breakers()
		}
	}
	return ps, nil
}

// create runs factory for entry. An unregistered name yields nil, nil.
func create[T any](kind string, entry config.ProviderEntry, factory func(config.ProviderEntry) (T, error)) (T, error) {
	var zero T
	p, err := factory(entry)
	switch {
	case errors.Is(err, config.ErrProviderNotRegistered):
		slog.Warn("provider not registered, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	case err != nil:
		return zero, fmt.Errorf("app: create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name, "model", entry.Model)
	return p, nil
}

// entryName distinguishes fallbacks that share a provider name.
func entryName(e config.ProviderEntry) string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + ":" + e.Model
}

func breakerMetrics(m *observe.Metrics) func(name string, from, to resilience.State) {
	if m == nil {
		return nil
	}
	return func(name string, _, to resilience.State) {
		m.RecordBreakerState(name, to.String())
	}
}
