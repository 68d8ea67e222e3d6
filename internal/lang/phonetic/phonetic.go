// Package phonetic matches misspelled or misheard words against a small set
// of expected words using Double Metaphone encoding combined with
// Jaro-Winkler similarity.
//
// Candidates sharing a phonetic code with the input are accepted above the
// phonetic threshold; all others need the stricter fuzzy threshold. Inputs
// are normalized (lower-case, no diacritics) before comparison, so "árbol"
// and "arbol" are identical to the matcher.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/pictalk/internal/lang"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.90
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically-matched candidate. Default: 0.80.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score when no phonetic
// code is shared. Default: 0.90.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Matcher configured with opts.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the candidate most similar to word. When matched is false,
// corrected equals word and confidence is 0.
func (m *Matcher) Match(word string, candidates []string) (corrected string, confidence float64, matched bool) {
	input := lang.Normalize(word)
	if input == "" || len(candidates) == 0 {
		return word, 0, false
	}
	inputCodes := codes(input)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, c := range candidates {
		cand := lang.Normalize(c)
		if cand == "" {
			continue
		}
		score := similarity(input, cand)
		if overlap(inputCodes, codes(cand)) {
			if score >= m.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = c, score, true
			}
		} else if !bestPhonetic && score >= m.fuzzyThreshold && score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == "" {
		return word, 0, false
	}
	return best, bestScore, true
}

// BestGuess looks for the token of utterance that most plausibly names
// target. It returns the token as written and whether any token matched.
// An exact (accent- and case-insensitive) token wins outright.
func (m *Matcher) BestGuess(utterance, target string) (token string, confidence float64, ok bool) {
	want := lang.Normalize(target)
	if want == "" {
		return "", 0, false
	}
	for _, t := range lang.Tokenize(utterance) {
		if lang.Normalize(t) == want {
			return t, 1, true
		}
	}

	// Multi-word targets compare against the whole utterance.
	if strings.ContainsRune(want, ' ') {
		if _, conf, matched := m.Match(utterance, []string{target}); matched {
			return utterance, conf, true
		}
		return "", 0, false
	}

	for _, t := range lang.Tokenize(utterance) {
		if _, conf, matched := m.Match(t, []string{target}); matched && conf > confidence {
			token, confidence, ok = t, conf, true
		}
	}
	return token, confidence, ok
}

// similarity is the best Jaro-Winkler score over the full strings and their
// space-stripped forms.
func similarity(a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	if strings.ContainsRune(a, ' ') || strings.ContainsRune(b, ' ') {
		if s := matchr.JaroWinkler(strings.ReplaceAll(a, " ", ""), strings.ReplaceAll(b, " ", ""), false); s > score {
			score = s
		}
	}
	return score
}

// codes returns the union of Double Metaphone codes of the words of s.
func codes(s string) map[string]struct{} {
	words := strings.Fields(s)
	out := make(map[string]struct{}, len(words)*2)
	for _, w := range words {
		p, sec := matchr.DoubleMetaphone(w)
		if p != "" {
			out[p] = struct{}{}
		}
		if sec != "" {
			out[sec] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}
