// Package lexical implements the classification ports with a multinomial
// naive Bayes model over Spanish word stems, trained at construction time
// from labelled examples.
package lexical

import (
	"context"
	"math"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/lang"
)

var (
	_ classify.IntentClassifier  = (*Classifier)(nil)
	_ classify.EmotionClassifier = (*Classifier)(nil)
)

// Classifier classifies intents and emotions. It is read-only after New and
// safe for concurrent use.
type Classifier struct {
	intents  *model[classify.Intent]
	emotions *model[classify.Emotion]
}

// New trains a Classifier on ex. Use [classify.DefaultExamples] for the
// built-in data.
func New(ex classify.Examples) *Classifier {
	return &Classifier{
		intents:  train(ex.Intents, classify.Intents),
		emotions: train(ex.Emotions, classify.Emotions),
	}
}

// ClassifyIntent implements [classify.IntentClassifier].
func (c *Classifier) ClassifyIntent(_ context.Context, text string) (classify.IntentResult, error) {
	label, conf, ok := c.intents.predict(text)
	if !ok {
		return classify.UnknownIntent, nil
	}
	return classify.NewIntentResult(label, conf), nil
}

// ClassifyEmotion implements [classify.EmotionClassifier].
func (c *Classifier) ClassifyEmotion(_ context.Context, text string) (classify.EmotionResult, error) {
	label, conf, ok := c.emotions.predict(text)
	if !ok {
		return classify.UnknownEmotion, nil
	}
	return classify.NewEmotionResult(label, conf), nil
}

type model[L comparable] struct {
	labels   []L
	logPrior []float64
	counts   []map[string]int
	totals   []int
	vocab    map[string]struct{}
}

func features(text string) []string {
	toks := lang.Tokenize(text)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if s := lang.Stem(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// train builds a model over the labels in order that have examples.
func train[L comparable](examples map[L][]string, order []L) *model[L] {
	m := &model[L]{vocab: make(map[string]struct{})}
	total := 0
	for _, l := range order {
		total += len(examples[l])
	}
	for _, l := range order {
		docs := examples[l]
		if len(docs) == 0 {
			continue
		}
		counts := make(map[string]int)
		n := 0
		for _, d := range docs {
			for _, f := range features(d) {
				counts[f]++
				n++
				m.vocab[f] = struct{}{}
			}
		}
		m.labels = append(m.labels, l)
		m.logPrior = append(m.logPrior, math.Log(float64(len(docs))/float64(total)))
		m.counts = append(m.counts, counts)
		m.totals = append(m.totals, n)
	}
	return m
}

// predict returns the most probable label and its posterior probability.
// ok is false when text has no feature seen during training.
func (m *model[L]) predict(text string) (label L, confidence float64, ok bool) {
	var known []string
	for _, f := range features(text) {
		if _, seen := m.vocab[f]; seen {
			known = append(known, f)
		}
	}
	if len(known) == 0 || len(m.labels) == 0 {
		return label, 0, false
	}

	v := float64(len(m.vocab))
	scores := make([]float64, len(m.labels))
	best := 0
	for i := range m.labels {
		s := m.logPrior[i]
		denom := float64(m.totals[i]) + v
		for _, f := range known {
			s += math.Log((float64(m.counts[i][f]) + 1) / denom)
		}
		scores[i] = s
		if s > scores[best] {
			best = i
		}
	}

	// Softmax of the best score, stable against underflow.
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return m.labels[best], 1 / sum, true
}
