// Package embedclass implements the classification ports as nearest-prototype
// search in an embedding space. Each label's prototype is the mean of its
// example embeddings; confidence is the cosine similarity to the closest
// prototype, floored at zero.
package embedclass

import (
	"context"
	"errors"
	"fmt"

	"github.com/viterin/vek/vek32"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
)

var (
	_ classify.IntentClassifier  = (*Classifier)(nil)
	_ classify.EmotionClassifier = (*Classifier)(nil)
)

type prototype[L any] struct {
	label  L
	vector []float32
}

// Classifier embeds each query once per call and compares it with the label
// prototypes. Safe for concurrent use when the provider is.
type Classifier struct {
	embedder embeddings.Provider
	intents  []prototype[classify.Intent]
	emotions []prototype[classify.Emotion]
}

// New embeds every example and builds the label prototypes.
func New(ctx context.Context, p embeddings.Provider, ex classify.Examples) (*Classifier, error) {
	if p == nil {
		return nil, errors.New("embedclass: embeddings provider is required")
	}
	c := &Classifier{embedder: p}
	var err error
	if c.intents, err = prototypes(ctx, p, ex.Intents, classify.Intents); err != nil {
		return nil, err
	}
	if c.emotions, err = prototypes(ctx, p, ex.Emotions, classify.Emotions); err != nil {
		return nil, err
	}
	return c, nil
}

func prototypes[L comparable](ctx context.Context, p embeddings.Provider, examples map[L][]string, order []L) ([]prototype[L], error) {
	var out []prototype[L]
	for _, l := range order {
		docs := examples[l]
		if len(docs) == 0 {
			continue
		}
		vecs, err := p.EmbedBatch(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("embedclass: embed examples for %v: %w", l, err)
		}
		var mean []float32
		for _, v := range vecs {
			if len(v) == 0 {
				continue
			}
			if mean == nil {
				mean = make([]float32, len(v))
			}
			if len(v) != len(mean) {
				return nil, fmt.Errorf("embedclass: inconsistent dimensions for %v", l)
			}
			vek32.Add_Inplace(mean, v)
		}
		if mean == nil {
			continue
		}
		if n := vek32.Norm(mean); n > 0 {
			vek32.DivNumber_Inplace(mean, n)
			out = append(out, prototype[L]{label: l, vector: mean})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("embedclass: no usable examples")
	}
	return out, nil
}

func nearest[L any](q []float32, protos []prototype[L]) (L, float64, bool) {
	var zero L
	qn := vek32.Norm(q)
	if qn == 0 {
		return zero, 0, false
	}
	best, bestScore := -1, float32(-2)
	for i, p := range protos {
		if len(p.vector) != len(q) {
			continue
		}
		if s := vek32.Dot(q, p.vector) / qn; s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return zero, 0, false
	}
	return protos[best].label, float64(max(bestScore, 0)), true
}

// ClassifyIntent implements [classify.IntentClassifier].
func (c *Classifier) ClassifyIntent(ctx context.Context, text string) (classify.IntentResult, error) {
	if classify.Blank(text) {
		return classify.UnknownIntent, nil
	}
	q, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return classify.UnknownIntent, fmt.Errorf("embedclass: embed query: %w", err)
	}
	label, conf, ok := nearest(q, c.intents)
	if !ok {
		return classify.UnknownIntent, nil
	}
	return classify.NewIntentResult(label, conf), nil
}

// ClassifyEmotion implements [classify.EmotionClassifier].
func (c *Classifier) ClassifyEmotion(ctx context.Context, text string) (classify.EmotionResult, error) {
	if classify.Blank(text) {
		return classify.UnknownEmotion, nil
	}
	q, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return classify.UnknownEmotion, fmt.Errorf("embedclass: embed query: %w", err)
	}
	label, conf, ok := nearest(q, c.emotions)
	if !ok {
		return classify.UnknownEmotion, nil
	}
	return classify.NewEmotionResult(label, conf), nil
}
