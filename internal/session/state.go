// Package session holds the per-user exercise state of the dialogue engine:
// which game, drill or guided session a user is in and how far along it is.
//
// State lives in memory only. A [Registry] owns one [State] per username,
// creates it on first use and drops it on [Registry.Clear]; a process restart
// loses every session.
package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MrWong99/pictalk/pkg/symbol"
)

// Mode is the kind of exercise in progress.
type Mode int

const (
	ModeNone Mode = iota
	ModeGame
	ModeGuided
	ModeDrill
)

// String returns the lower-case name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeGame:
		return "game"
	case ModeGuided:
		return "guided"
	case ModeDrill:
		return "drill"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Assignment is the metadata of the therapist assignment a guided session
// was started from.
type Assignment struct {
	// ID is the stored assignment's identifier, empty for ad hoc sessions.
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type"`
	Task        string   `json:"task"`
	Title       string   `json:"title"`
	TargetWords []string `json:"target_words"`
}

// State is one user's exercise state.
type State struct {
	InProgress bool `json:"in_progress"`
	Mode       Mode `json:"mode"`

	// CorrectAnswer is the word expected next in a game or guided session.
	CorrectAnswer string `json:"correct_answer,omitempty"`

	// SymbolHint is the asset path shown with the current prompt.
	SymbolHint string `json:"symbol_hint_path,omitempty"`

	GuidedWords []string    `json:"guided_words,omitempty"`
	GuidedStep  int         `json:"guided_step"`
	Failures    int         `json:"failures"`
	Assignment  *Assignment `json:"assignment,omitempty"`

	DrillItems  []symbol.Entry `json:"drill_items,omitempty"`
	DrillRound  int            `json:"drill_round"`
	DrillTarget string         `json:"drill_target,omitempty"`

	// DrillShown holds every asset path presented during the current drill.
	DrillShown []string `json:"drill_shown,omitempty"`

	Category string `json:"category,omitempty"`
}

// Reset returns s to the idle state.
func (s *State) Reset() {
	*s = State{}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.GuidedWords = slices.Clone(s.GuidedWords)
	c.DrillItems = slices.Clone(s.DrillItems)
	c.DrillShown = slices.Clone(s.DrillShown)
	if s.Assignment != nil {
		a := *s.Assignment
		a.TargetWords = slices.Clone(s.Assignment.TargetWords)
		c.Assignment = &a
	}
	return c
}

// Validate checks the structural invariants of s.
func (s State) Validate() error {
	var errs []error
	if (s.Mode == ModeNone) == s.InProgress {
		errs = append(errs, fmt.Errorf("session: mode %s inconsistent with in_progress=%v", s.Mode, s.InProgress))
	}
	if s.Mode == ModeGuided && s.GuidedStep >= len(s.GuidedWords) {
		errs = append(errs, fmt.Errorf("session: guided step %d out of range for %d words", s.GuidedStep, len(s.GuidedWords)))
	}
	if s.GuidedStep < 0 || s.Failures < 0 || s.DrillRound < 0 {
		errs = append(errs, errors.New("session: negative counter"))
	}
	return errors.Join(errs...)
}
