package embedclass_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/classify/embedclass"
	embmock "github.com/MrWong99/pictalk/pkg/provider/embeddings/mock"
)

func testExamples() classify.Examples {
	return classify.Examples{
		Intents: map[classify.Intent][]string{
			classify.IntentHint:    {"dame una pista", "ayúdame"},
			classify.IntentFactual: {"qué es"},
		},
		Emotions: map[classify.Emotion][]string{
			classify.EmotionSad:  {"estoy triste"},
			classify.EmotionCalm: {"estoy tranquilo"},
		},
	}
}

func testProvider() *embmock.Provider {
	return &embmock.Provider{
		Vectors: map[string][]float32{
			"dame una pista":  {1, 0},
			"ayúdame":         {1, 0},
			"qué es":          {0, 1},
			"estoy triste":    {1, 0},
			"estoy tranquilo": {0, 1},
			"una pista":       {0.8, 0.6},
			"bien":            {-1, 0},
		},
		DefaultVector:   []float32{0, 0},
		DimensionsValue: 2,
		ModelIDValue:    "m",
	}
}

func TestClassifier_NearestPrototype(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, err := embedclass.New(ctx, testProvider(), testExamples())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := c.ClassifyIntent(ctx, "una pista")
	if err != nil {
		t.Fatalf("ClassifyIntent: %v", err)
	}
	if got.Label != classify.IntentHint {
		t.Errorf("label = %q, want %q", got.Label, classify.IntentHint)
	}
	if math.Abs(got.Confidence-0.8) > 1e-6 {
		t.Errorf("confidence = %v, want 0.8", got.Confidence)
	}

	em, err := c.ClassifyEmotion(ctx, "bien")
	if err != nil {
		t.Fatalf("ClassifyEmotion: %v", err)
	}
	if em.Confidence != 0 {
		t.Errorf("negative similarity gave confidence %v, want 0", em.Confidence)
	}
}

func TestClassifier_EmptyAndZeroVector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := testProvider()
	c, err := embedclass.New(ctx, p, testExamples())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	embeds, _ := p.Calls()

	if got, _ := c.ClassifyIntent(ctx, "  "); got != classify.UnknownIntent {
		t.Errorf("empty input = %+v, want %+v", got, classify.UnknownIntent)
	}
	if after, _ := p.Calls(); after != embeds {
		t.Error("empty input reached the embedding backend")
	}
	if got, _ := c.ClassifyEmotion(ctx, "sin vector"); got != classify.UnknownEmotion {
		t.Errorf("zero vector = %+v, want %+v", got, classify.UnknownEmotion)
	}
}

func TestClassifier_BackendError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := testProvider()
	c, err := embedclass.New(ctx, p, testExamples())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.EmbedErr = errors.New("down")

	got, err := c.ClassifyIntent(ctx, "una pista")
	if err == nil {
		t.Fatal("expected error")
	}
	if got != classify.UnknownIntent {
		t.Errorf("result on error = %+v, want %+v", got, classify.UnknownIntent)
	}
}

func TestNew_RequiresExamples(t *testing.T) {
	t.Parallel()
	if _, err := embedclass.New(context.Background(), testProvider(), classify.Examples{}); err == nil {
		t.Fatal("expected error for empty examples")
	}
	if _, err := embedclass.New(context.Background(), nil, testExamples()); err == nil {
		t.Fatal("expected error for nil provider")
	}
}
