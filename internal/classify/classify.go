// Package classify defines the intent and emotion classification ports used
// by the dialogue router.
//
// Both ports map free text to a label with a confidence in [0, 1]. Empty or
// unusable input yields the lowest-priority label ([IntentOther],
// [EmotionNeutral]) with confidence 0. Results below [Threshold] are treated
// by callers as unclassified; see [IntentResult.Confident].
package classify

import (
	"context"
	"strings"
)

// Threshold is the minimum confidence at which a label is acted upon.
const Threshold = 0.5

// Intent is a closed set of conversational intents.
type Intent string

const (
	IntentSchoolRoutine   Intent = "rutina_escolar"
	IntentSpeechTherapy   Intent = "terapia_habla"
	IntentCooperativeGame Intent = "juego_cooperativo"
	IntentDailyAutonomy   Intent = "autonomia_diaria"
	IntentFactual         Intent = "factual_pregunta"
	IntentEmotional       Intent = "emocional_checkin"
	IntentHint            Intent = "juego_pista"
	IntentRelated         Intent = "concepto_relacionado"
	IntentConsent         Intent = "consentimiento"
	IntentOther           Intent = "otra_consulta"
)

// Intents lists every intent; [IntentOther] is last.
var Intents = []Intent{
	IntentSchoolRoutine,
	IntentSpeechTherapy,
	IntentCooperativeGame,
	IntentDailyAutonomy,
	IntentFactual,
	IntentEmotional,
	IntentHint,
	IntentRelated,
	IntentConsent,
	IntentOther,
}

// ParseIntent maps a label to its Intent, ignoring case and surrounding space.
func ParseIntent(s string) (Intent, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, in := range Intents {
		if string(in) == s {
			return in, true
		}
	}
	return IntentOther, false
}

// Emotion is a closed set of emotional states.
type Emotion string

const (
	EmotionSad     Emotion = "triste"
	EmotionAnxious Emotion = "ansioso"
	EmotionAngry   Emotion = "enojado"
	EmotionProud   Emotion = "orgulloso"
	EmotionCalm    Emotion = "calmo"
	EmotionNeutral Emotion = "neutral"
)

// Emotions lists every emotion; [EmotionNeutral] is last.
var Emotions = []Emotion{
	EmotionSad,
	EmotionAnxious,
	EmotionAngry,
	EmotionProud,
	EmotionCalm,
	EmotionNeutral,
}

// ParseEmotion maps a label to its Emotion, ignoring case and surrounding space.
func ParseEmotion(s string) (Emotion, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, e := range Emotions {
		if string(e) == s {
			return e, true
		}
	}
	return EmotionNeutral, false
}

// IntentResult is the outcome of intent classification.
type IntentResult struct {
	Label      Intent  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Confident reports whether the result reaches [Threshold].
func (r IntentResult) Confident() bool { return r.Confidence >= Threshold }

// EmotionResult is the outcome of emotion classification.
type EmotionResult struct {
	Label      Emotion `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Confident reports whether the result reaches [Threshold].
func (r EmotionResult) Confident() bool { return r.Confidence >= Threshold }

// UnknownIntent is the result for empty or unusable input.
var UnknownIntent = IntentResult{Label: IntentOther}

// UnknownEmotion is the result for empty or unusable input.
var UnknownEmotion = EmotionResult{Label: EmotionNeutral}

// IntentClassifier maps text to an intent. Implementations must return
// [UnknownIntent] for empty text and must be safe for concurrent use. An
// error means the backend failed; callers substitute [UnknownIntent].
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, text string) (IntentResult, error)
}

// EmotionClassifier maps text to an emotion. The contract mirrors
// [IntentClassifier].
type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, text string) (EmotionResult, error)
}

// Blank reports whether text carries no classifiable content.
func Blank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// clamp bounds c to [0, 1].
func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// NewIntentResult returns a result with confidence clamped to [0, 1].
func NewIntentResult(label Intent, confidence float64) IntentResult {
	return IntentResult{Label: label, Confidence: clamp(confidence)}
}

// NewEmotionResult returns a result with confidence clamped to [0, 1].
func NewEmotionResult(label Emotion, confidence float64) EmotionResult {
	return EmotionResult{Label: label, Confidence: clamp(confidence)}
}
