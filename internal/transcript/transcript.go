// Package transcript corrects speech-to-text output toward the pictogram
// vocabulary before it is answered.
//
// Transcription engines often mishear words they rarely see, and the
// words that matter most to a symbol board are exactly the catalog
// keywords. A [Corrector] walks the transcript token by token and replaces
// unknown words (and unknown multi-word spans) with the keyword they most
// plausibly name, using the phonetic matcher from the lang package.
//
// Words that are already known (keywords, their stems and function words)
// are never rewritten, so a correct transcript passes through unchanged.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/internal/lang/phonetic"
)

const defaultMinLength = 4

// Correction records one replaced span.
type Correction struct {
	// Original is the span as transcribed, without surrounding punctuation.
	Original string `json:"original"`

	// Corrected is the vocabulary entry that replaced it.
	Corrected string `json:"corrected"`

	// Confidence is the similarity score in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of [Corrector.Correct].
type Result struct {
	// Original is the transcript as received.
	Original string

	// Corrected is the transcript after correction. It equals Original when
	// Corrections is empty.
	Corrected string

	Corrections []Correction
}

// Option is a functional option for [New].
type Option func(*Corrector)

// WithMatcher replaces the default phonetic matcher.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(c *Corrector) { c.matcher = m }
}

// WithMinLength sets the shortest word, in runes, that is considered for
// correction. Default: 4.
func WithMinLength(n int) Option {
	return func(c *Corrector) { c.minLen = n }
}

// Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	matcher *phonetic.Matcher
	minLen  int

	// known holds normalized vocabulary words and their stems.
	known map[string]struct{}

	// single and multi split the vocabulary by word count.
	single   []string
	multi    map[int][]string
	maxWords int
}

// New builds a Corrector for vocabulary. Duplicate and blank entries are
// ignored.
func New(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		minLen: defaultMinLength,
		known:  make(map[string]struct{}, len(vocabulary)*2),
		multi:  make(map[int][]string),
	}
	for _, o := range opts {
		o(c)
	}
	if c.matcher == nil {
		c.matcher = phonetic.New()
	}

	seen := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		v = strings.TrimSpace(v)
		norm := lang.Normalize(v)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}

		words := strings.Fields(norm)
		for _, w := range words {
			c.known[w] = struct{}{}
			c.known[lang.Stem(w)] = struct{}{}
		}
		if len(words) == 1 {
			c.single = append(c.single, v)
			continue
		}
		c.known[norm] = struct{}{}
		c.multi[len(words)] = append(c.multi[len(words)], v)
		c.maxWords = max(c.maxWords, len(words))
	}
	return c
}

// Len returns the number of distinct vocabulary entries.
func (c *Corrector) Len() int {
	n := len(c.single)
	for _, vs := range c.multi {
		n += len(vs)
	}
	return n
}

// Correct rewrites the unknown words of text that closely resemble a
// vocabulary entry. Longer spans are tried first so a multi-word entry
// wins over a partial single-word match. Punctuation around a replaced span
// and the capitalisation of its first letter are preserved.
func (c *Corrector) Correct(text string) Result {
	res := Result{Original: text, Corrected: text}
	toks := split(text)
	if len(toks) == 0 || c.Len() == 0 {
		return res
	}

	out := make([]string, 0, len(toks))
	for i := 0; i < len(toks); {
		n, repl, conf := c.matchAt(toks[i:])
		if n == 0 {
			out = append(out, toks[i].raw)
			i++
			continue
		}
		span := toks[i : i+n]
		cores := make([]string, n)
		for j, t := range span {
			cores[j] = t.core
		}
		res.Corrections = append(res.Corrections, Correction{
			Original:   strings.Join(cores, " "),
			Corrected:  repl,
			Confidence: conf,
		})
		out = append(out, span[0].prefix+matchCase(span[0].core, repl)+span[n-1].suffix)
		i += n
	}

	if len(res.Corrections) > 0 {
		res.Corrected = strings.Join(out, " ")
	}
	return res
}

// matchAt returns the number of tokens at the head of toks replaced by
// vocabulary entry repl, or 0 when nothing matches.
func (c *Corrector) matchAt(toks []token) (n int, repl string, conf float64) {
	for size := min(c.maxWords, len(toks)); size >= 2; size-- {
		span := toks[:size]
		if !c.anyUnknown(span) {
			continue
		}
		cores := make([]string, size)
		for j, t := range span {
			cores[j] = t.core
		}
		if m, score, ok := c.matcher.Match(strings.Join(cores, " "), c.multi[size]); ok {
			return size, m, score
		}
	}
	if !c.candidate(toks[0].core) {
		return 0, "", 0
	}
	if m, score, ok := c.matcher.Match(toks[0].core, c.single); ok {
		return 1, m, score
	}
	return 0, "", 0
}

// candidate reports whether word is eligible for correction on its own.
func (c *Corrector) candidate(word string) bool {
	if utf8.RuneCountInString(word) < c.minLen || lang.HasDigit(word) || lang.FunctionWord(word) {
		return false
	}
	return !c.isKnown(word)
}

func (c *Corrector) anyUnknown(span []token) bool {
	for _, t := range span {
		if c.candidate(t.core) {
			return true
		}
	}
	return false
}

func (c *Corrector) isKnown(word string) bool {
	norm := lang.Normalize(word)
	if _, ok := c.known[norm]; ok {
		return true
	}
	_, ok := c.known[lang.Stem(norm)]
	return ok
}

// ── Tokens ──────────────────────────────────────────────────────────────────

// token is a whitespace-separated piece of the transcript split into its
// word core and the punctuation around it.
type token struct {
	raw    string
	prefix string
	core   string
	suffix string
}

func split(text string) []token {
	fields := strings.Fields(text)
	toks := make([]token, 0, len(fields))
	for _, f := range fields {
		start := strings.IndexFunc(f, isWordRune)
		if start < 0 {
			toks = append(toks, token{raw: f, prefix: f})
			continue
		}
		end := strings.LastIndexFunc(f, isWordRune)
		_, size := utf8.DecodeRuneInString(f[end:])
		toks = append(toks, token{
			raw:    f,
			prefix: f[:start],
			core:   f[start : end+size],
			suffix: f[end+size:],
		})
	}
	return toks
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// matchCase capitalises repl when orig starts with an upper-case letter.
func matchCase(orig, repl string) string {
	first, _ := utf8.DecodeRuneInString(orig)
	if !unicode.IsUpper(first) {
		return repl
	}
	r, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(r)) + repl[size:]
}
