// Package mock provides deterministic classifiers for tests.
//
//	c := &mock.Classifier{
//	    Intent:  classify.IntentResult{Label: classify.IntentHint, Confidence: 0.9},
//	    Emotion: classify.UnknownEmotion,
//	}
//
// IntentFunc and EmotionFunc, when set, take precedence over the fixed
// results.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/pictalk/internal/classify"
)

var (
	_ classify.IntentClassifier  = (*Classifier)(nil)
	_ classify.EmotionClassifier = (*Classifier)(nil)
)

// Classifier is a configurable test double for both classification ports.
// The zero value classifies everything as unknown.
type Classifier struct {
	mu sync.Mutex

	Intent     classify.IntentResult
	IntentFunc func(text string) classify.IntentResult
	IntentErr  error

	Emotion     classify.EmotionResult
	EmotionFunc func(text string) classify.EmotionResult
	EmotionErr  error

	intentCalls  []string
	emotionCalls []string
}

// ClassifyIntent implements [classify.IntentClassifier].
func (c *Classifier) ClassifyIntent(_ context.Context, text string) (classify.IntentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intentCalls = append(c.intentCalls, text)
	if c.IntentErr != nil {
		return classify.UnknownIntent, c.IntentErr
	}
	if c.IntentFunc != nil {
		return c.IntentFunc(text), nil
	}
	if c.Intent.Label == "" {
		return classify.UnknownIntent, nil
	}
	return c.Intent, nil
}

// ClassifyEmotion implements [classify.EmotionClassifier].
func (c *Classifier) ClassifyEmotion(_ context.Context, text string) (classify.EmotionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emotionCalls = append(c.emotionCalls, text)
	if c.EmotionErr != nil {
		return classify.UnknownEmotion, c.EmotionErr
	}
	if c.EmotionFunc != nil {
		return c.EmotionFunc(text), nil
	}
	if c.Emotion.Label == "" {
		return classify.UnknownEmotion, nil
	}
	return c.Emotion, nil
}

// IntentCalls returns the texts passed to ClassifyIntent, in order.
func (c *Classifier) IntentCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.intentCalls...)
}

// EmotionCalls returns the texts passed to ClassifyEmotion, in order.
func (c *Classifier) EmotionCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.emotionCalls...)
}
