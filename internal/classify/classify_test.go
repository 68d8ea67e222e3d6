package classify_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/pictalk/internal/classify"
)

func TestParseIntent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		want   classify.Intent
		wantOK bool
	}{
		{"juego_pista", classify.IntentHint, true},
		{"  Emocional_Checkin ", classify.IntentEmotional, true},
		{"otra_consulta", classify.IntentOther, true},
		{"bailar", classify.IntentOther, false},
		{"", classify.IntentOther, false},
	}
	for _, tc := range tests {
		got, ok := classify.ParseIntent(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ParseIntent(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestParseEmotion(t *testing.T) {
	t.Parallel()
	if got, ok := classify.ParseEmotion("TRISTE"); got != classify.EmotionSad || !ok {
		t.Errorf("ParseEmotion(TRISTE) = (%q, %v)", got, ok)
	}
	if got, ok := classify.ParseEmotion("feliz"); got != classify.EmotionNeutral || ok {
		t.Errorf("ParseEmotion(feliz) = (%q, %v), want (neutral, false)", got, ok)
	}
}

func TestLowestLabelsAreLast(t *testing.T) {
	t.Parallel()
	if got := classify.Intents[len(classify.Intents)-1]; got != classify.IntentOther {
		t.Errorf("last intent = %q, want %q", got, classify.IntentOther)
	}
	if got := classify.Emotions[len(classify.Emotions)-1]; got != classify.EmotionNeutral {
		t.Errorf("last emotion = %q, want %q", got, classify.EmotionNeutral)
	}
	if classify.UnknownIntent.Confidence != 0 || classify.UnknownEmotion.Confidence != 0 {
		t.Error("unknown results must carry confidence 0")
	}
}

func TestResult_Confident(t *testing.T) {
	t.Parallel()
	tests := []struct {
		conf float64
		want bool
	}{
		{0, false},
		{0.49, false},
		{0.5, true},
		{1, true},
	}
	for _, tc := range tests {
		if got := classify.NewIntentResult(classify.IntentHint, tc.conf).Confident(); got != tc.want {
			t.Errorf("IntentResult{%v}.Confident() = %v, want %v", tc.conf, got, tc.want)
		}
		if got := classify.NewEmotionResult(classify.EmotionSad, tc.conf).Confident(); got != tc.want {
			t.Errorf("EmotionResult{%v}.Confident() = %v, want %v", tc.conf, got, tc.want)
		}
	}
	if got := classify.NewIntentResult(classify.IntentHint, -1).Confidence; got != 0 {
		t.Errorf("negative confidence clamped to %v, want 0", got)
	}
}

func TestDefaultExamples_CoverEveryLabel(t *testing.T) {
	t.Parallel()
	ex := classify.DefaultExamples()
	for _, in := range classify.Intents {
		if len(ex.Intents[in]) == 0 {
			t.Errorf("no examples for intent %q", in)
		}
	}
	for _, e := range classify.Emotions {
		if len(ex.Emotions[e]) == 0 {
			t.Errorf("no examples for emotion %q", e)
		}
	}
}

func TestLoadExamples_RejectsUnknownLabel(t *testing.T) {
	t.Parallel()
	_, err := classify.LoadExamples(strings.NewReader("intents:\n  bailar:\n    - a bailar\n"))
	if err == nil {
		t.Fatal("expected error for unknown label")
	}
}
