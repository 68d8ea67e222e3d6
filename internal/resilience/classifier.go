package resilience

import (
	"context"

	"github.com/MrWong99/pictalk/internal/classify"
)

// IntentFallback implements [classify.IntentClassifier] over an ordered list
// of classifiers, typically a remote model backed by the lexical classifier.
type IntentFallback struct {
	group *FallbackGroup[classify.IntentClassifier]
}

var _ classify.IntentClassifier = (*IntentFallback)(nil)

// NewIntentFallback creates an [IntentFallback] preferring primary.
func NewIntentFallback(primary classify.IntentClassifier, primaryName string, cfg FallbackConfig) *IntentFallback {
	if cfg.Kind == "" {
		cfg.Kind = "intent"
	}
	return &IntentFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another classifier.
func (f *IntentFallback) AddFallback(name string, c classify.IntentClassifier) {
	f.group.AddFallback(name, c)
}

// ClassifyIntent returns the label of the first classifier that succeeds.
func (f *IntentFallback) ClassifyIntent(ctx context.Context, text string) (classify.IntentResult, error) {
	if classify.Blank(text) {
		return classify.UnknownIntent, nil
	}
	return ExecuteWithResult(ctx, f.group, func(c classify.IntentClassifier) (classify.IntentResult, error) {
		return c.ClassifyIntent(ctx, text)
	})
}

// EmotionFallback implements [classify.EmotionClassifier] the same way.
type EmotionFallback struct {
	group *FallbackGroup[classify.EmotionClassifier]
}

var _ classify.EmotionClassifier = (*EmotionFallback)(nil)

// NewEmotionFallback creates an [EmotionFallback] preferring primary.
func NewEmotionFallback(primary classify.EmotionClassifier, primaryName string, cfg FallbackConfig) *EmotionFallback {
	if cfg.Kind == "" {
		cfg.Kind = "emotion"
	}
	return &EmotionFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another classifier.
func (f *EmotionFallback) AddFallback(name string, c classify.EmotionClassifier) {
	f.group.AddFallback(name, c)
}

// ClassifyEmotion returns the label of the first classifier that succeeds.
func (f *EmotionFallback) ClassifyEmotion(ctx context.Context, text string) (classify.EmotionResult, error) {
	if classify.Blank(text) {
		return classify.UnknownEmotion, nil
	}
	return ExecuteWithResult(ctx, f.group, func(c classify.EmotionClassifier) (classify.EmotionResult, error) {
		return c.ClassifyEmotion(ctx, text)
	})
}
