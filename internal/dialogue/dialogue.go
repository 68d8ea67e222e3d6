// Package dialogue is the conversational engine: for every utterance it
// decides which response strategy answers, drives the per-user game, drill
// and guided-session state machines and maps the reply to pictograms.
//
// A turn for a user with an exercise in progress is resolved against that
// exercise alone. Any other turn is classified and handed to an ordered chain
// of strategies ([DefaultChain]); the first strategy that answers wins and
// the generative fallback at the end of the chain always answers.
//
// [Router.Process] never fails. Empty input, unknown categories, exhausted
// symbol pools and collaborator failures all degrade to a user-visible
// default text.
package dialogue

import (
	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/internal/symbolindex"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// Role is the role of the person speaking.
type Role string

const (
	RoleStudent   Role = "student"
	RoleChild     Role = "child"
	RoleTherapist Role = "therapist"
	RoleTeacher   Role = "teacher"
)

// Student reports whether r is a learner role. An unset role counts as one.
func (r Role) Student() bool {
	switch r {
	case RoleStudent, RoleChild, "":
		return true
	}
	return false
}

// Request is one utterance.
type Request struct {
	User string `json:"user"`
	Role Role   `json:"role,omitempty"`
	Text string `json:"text"`
}

// Response is the router's answer to one utterance.
type Response struct {
	// Reply is the reply text.
	Reply string `json:"reply"`

	// Words is the reply mapped to pictograms: visual hints first, then the
	// reply text, then its nouns and verbs that have a symbol. Never empty.
	Words []symbol.WordSymbol `json:"words"`

	// Input is the user's own utterance mapped to pictograms.
	Input []symbol.WordSymbol `json:"input,omitempty"`

	Intent            classify.Intent  `json:"intent"`
	IntentConfidence  float64          `json:"intent_confidence"`
	Emotion           classify.Emotion `json:"emotion"`
	EmotionConfidence float64          `json:"emotion_confidence"`

	Suggestions []symbolindex.Suggestion `json:"suggested_symbols"`
	Entities    []lang.Entity            `json:"entities"`

	// Strategy names what produced the reply.
	Strategy string `json:"strategy"`
}

// Names of the strategies and exercise handlers reported in
// [Response.Strategy].
const (
	StrategyEmpty       = "empty"
	StrategySkip        = "skip"
	StrategyGame        = "game"
	StrategyDrill       = "drill"
	StrategyGuided      = "guided_session"
	StrategyGameStart   = "game_start"
	StrategyDrillStart  = "drill_start"
	StrategyScripted    = "scripted"
	StrategyNumeric     = "numeric"
	StrategyEmotion     = "emotion_override"
	StrategyHealth      = "health"
	StrategyIntent      = "intent"
	StrategyDescriptive = "descriptive"
	StrategyGenerative  = "generative"
	StrategyChoice      = "choice"
	StrategyFallback    = "fallback"

	// Specialised intent builders.
	StrategyConsent   = "consent"
	StrategyEmotional = "emotional_checkin"
	StrategyFactual   = "factual"
	StrategyHint      = "hint"
	StrategyRelated   = "related"
)

// Reply is what a strategy produces before symbol attachment.
type Reply struct {
	Text string

	// Hint is the asset path shown alongside the text.
	Hint string

	// Items are visual hints placed before the text (drill options,
	// choice symbols).
	Items []symbol.WordSymbol

	// Source overrides the answering strategy's name in the response.
	Source string
}
