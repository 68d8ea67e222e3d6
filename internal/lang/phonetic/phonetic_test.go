package phonetic_test

import (
	"testing"

	"github.com/MrWong99/pictalk/internal/lang/phonetic"
)

func TestMatcher_MatchCategory(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, conf, matched := m.Match("animals", []string{"frutas", "animales", "colores"})
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "animals")
	}
	if corrected != "animales" {
		t.Errorf("corrected = %q, want %q", corrected, "animales")
	}
	if conf < 0.8 {
		t.Errorf("confidence = %f, want >= 0.8", conf)
	}
}

func TestMatcher_MatchNoCandidates(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, conf, matched := m.Match("gato", nil)
	if matched || conf != 0 || corrected != "gato" {
		t.Errorf("Match(gato, nil) = (%q, %f, %v), want (gato, 0, false)", corrected, conf, matched)
	}
}

func TestMatcher_BestGuessExactToken(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	tests := []struct {
		utterance, target, want string
	}{
		{"creo que es un gato", "gato", "gato"},
		{"es un GATO", "gato", "GATO"},
		{"un arbol", "árbol", "arbol"},
	}
	for _, tc := range tests {
		got, conf, ok := m.BestGuess(tc.utterance, tc.target)
		if !ok {
			t.Errorf("BestGuess(%q, %q): ok=false", tc.utterance, tc.target)
			continue
		}
		if got != tc.want || conf != 1 {
			t.Errorf("BestGuess(%q, %q) = (%q, %f), want (%q, 1)", tc.utterance, tc.target, got, conf, tc.want)
		}
	}
}

func TestMatcher_BestGuessMisspelled(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	got, conf, ok := m.BestGuess("es una maripossa", "mariposa")
	if !ok {
		t.Fatal("BestGuess: ok=false, want true")
	}
	if got != "maripossa" {
		t.Errorf("token = %q, want %q", got, "maripossa")
	}
	if conf < 0.8 {
		t.Errorf("confidence = %f, want >= 0.8", conf)
	}
}

func TestMatcher_BestGuessNoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	if tok, _, ok := m.BestGuess("me gusta el sol", "elefante"); ok {
		t.Errorf("BestGuess matched %q, want no match", tok)
	}
	if _, _, ok := m.BestGuess("algo", ""); ok {
		t.Error("BestGuess with empty target matched")
	}
}
