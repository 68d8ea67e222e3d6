package content

import (
	"bytes"
	_ "embed"
)

//go:embed default.yaml
var defaultYAML []byte

var defaultPack = mustDefault()

func mustDefault() *Pack {
	p, err := LoadFromReader(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the built-in pack. Callers must not modify it.
func Default() *Pack { return defaultPack }

// Keys of the built-in texts.
const (
	KeyPromptPrefix = "prompt_prefix"
	KeyFallback     = "fallback"
	KeyGreeting     = "greeting"
	KeyNumeric      = "numeric"
	KeyHealth       = "health"
	KeyConsent      = "consent"
	KeyFactual      = "factual"
	KeyFactualNone  = "factual_unknown"
	KeyHint         = "hint"
	KeyRelated      = "related"
	KeyRelatedNone  = "related_unknown"
	KeyChoice       = "choice"
	KeyEmpty        = "empty"

	KeyIntro   = "intro"
	KeyContext = "context"

	KeyStart       = "start"
	KeyCorrect     = "correct"
	KeyNext        = "next"
	KeyRetry       = "retry"
	KeyComplete    = "complete"
	KeySkip        = "skip"
	KeyUnavailable = "unavailable"
	KeyRepeat      = "repeat"
	KeyNone        = "none"
)
