// Package lang provides the Spanish text handling shared by symbol
// resolution and dialogue routing: accent-insensitive normalization,
// tokenization, a lightweight part-of-speech tagger, a catalog-aware
// lemmatizer and rule-based entity extraction.
package lang

import (
	"strings"
	"unicode"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/spanish"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, trims surrounding space and strips diacritics
// ("Árbol" → "arbol", "niño" → "nino").
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if isASCII(s) {
		return s
	}
	// transform.Chain keeps per-call state and must not be shared.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases and trims s without touching diacritics.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Stem returns the Snowball Spanish stem of the normalized form of word.
func Stem(word string) string {
	env := snowballstem.NewEnv(Normalize(word))
	spanish.Stem(env)
	return env.Current()
}

// Tokenize splits text into word tokens: maximal runs of letters and digits.
// Punctuation and whitespace separate tokens and are dropped.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizedSet returns the set of normalized tokens of text.
func NormalizedSet(text string) map[string]struct{} {
	toks := Tokenize(text)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[Normalize(t)] = struct{}{}
	}
	return set
}

// HasDigit reports whether s contains at least one decimal digit.
func HasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
