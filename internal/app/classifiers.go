package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/classify/embedclass"
	"github.com/MrWong99/pictalk/internal/classify/lexical"
	"github.com/MrWong99/pictalk/internal/classify/llmclass"
	"github.com/MrWong99/pictalk/internal/config"
	"github.com/MrWong99/pictalk/internal/resilience"
)

// both is satisfied by every classifier backend.
type both interface {
	classify.IntentClassifier
	classify.EmotionClassifier
}

// initClassifiers builds the configured intent and emotion classifiers.
// Remote backends are chained with the lexical classifier, which never
// fails. A kind whose provider is missing degrades to lexical.
func (a *App) initClassifiers(ctx context.Context) error {
	if a.intents != nil && a.emotions != nil {
		return nil
	}
	ex, err := a.trainingExamples()
	if err != nil {
		return err
	}
	lex := lexical.New(ex)

	// Backends are built once and shared by both tasks.
	var (
		embed  both
		remote both
	)
	backend := func(kind config.ClassifierKind) (both, string) {
		switch kind {
		case config.ClassifierEmbedding:
			if a.providers.Embeddings == nil {
				slog.Warn("app: embedding classifier needs an embeddings provider, using lexical")
				return nil, ""
			}
			if embed == nil {
				c, err := embedclass.New(ctx, a.providers.Embeddings, ex)
				if err != nil {
					slog.Warn("app: embedding classifier unavailable, using lexical", "err", err)
					return nil, ""
				}
				embed = c
			}
			return embed, "embedding"
		case config.ClassifierLLM:
			if a.providers.LLM == nil {
				slog.Warn("app: llm classifier needs an llm provider, using lexical")
				return nil, ""
			}
			if remote == nil {
				remote = llmclass.New(a.providers.LLM)
			}
			return remote, "llm"
		}
		return nil, ""
	}

	fcfg := func(kind string) resilience.FallbackConfig {
		cb := a.cfg.Providers.CircuitBreaker
		return resilience.FallbackConfig{
			Kind: kind,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				MaxFailures:   cb.MaxFailures,
				ResetTimeout:  cb.ResetTimeout,
				OnStateChange: breakerMetrics(a.metrics),
			},
		}
	}

	if a.intents == nil {
		a.intents = lex
		if c, name := backend(a.cfg.Classifier.Intent); c != nil {
			f := resilience.NewIntentFallback(c, name, fcfg("intent"))
			f.AddFallback("lexical", lex)
			a.intents = f
		}
	}
	if a.emotions == nil {
		a.emotions = lex
		if c, name := backend(a.cfg.Classifier.Emotion); c != nil {
			f := resilience.NewEmotionFallback(c, name, fcfg("emotion"))
			f.AddFallback("lexical", lex)
			a.emotions = f
		}
	}
	slog.Info("classifiers ready",
		"intent", orLexical(a.cfg.Classifier.Intent),
		"emotion", orLexical(a.cfg.Classifier.Emotion),
	)
	return nil
}

func (a *App) trainingExamples() (classify.Examples, error) {
	path := a.cfg.Classifier.TrainingPath
	if path == "" {
		return classify.DefaultExamples(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return classify.Examples{}, fmt.Errorf("open training examples: %w", err)
	}
	defer f.Close()
	ex, err := classify.LoadExamples(f)
	if err != nil {
		return classify.Examples{}, fmt.Errorf("load training examples %q: %w", path, err)
	}
	return ex, nil
}

func orLexical(k config.ClassifierKind) config.ClassifierKind {
	if k == "" {
		return config.ClassifierLexical
	}
	return k
}
