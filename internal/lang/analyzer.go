package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// POS is a coarse part-of-speech tag.
type POS int

const (
	POSOther POS = iota
	POSNoun
	POSVerb
	POSAdj
	POSAdv
	POSPron
	POSDet
	POSAdp
	POSConj
	POSNum
	POSIntj
)

// String returns the Universal Dependencies style tag name.
func (p POS) String() string {
	switch p {
	case POSNoun:
		return "NOUN"
	case POSVerb:
		return "VERB"
	case POSAdj:
		return "ADJ"
	case POSAdv:
		return "ADV"
	case POSPron:
		return "PRON"
	case POSDet:
		return "DET"
	case POSAdp:
		return "ADP"
	case POSConj:
		return "CCONJ"
	case POSNum:
		return "NUM"
	case POSIntj:
		return "INTJ"
	default:
		return "X"
	}
}

// Content reports whether tokens with this tag carry a symbolizable concept.
func (p POS) Content() bool { return p == POSNoun || p == POSVerb }

// Token is one analysed word of an utterance.
type Token struct {
	// Text is the token as written.
	Text string
	// Norm is the normalized (lower-case, accent-free) form.
	Norm string
	// POS is the coarse part-of-speech tag.
	POS POS
	// Lemma is the dictionary form. It equals the lower-cased text when no
	// better form is known.
	Lemma string
	// Person is the grammatical person (1–3) of a conjugated verb, 0 otherwise.
	Person int
}

// Pronoun returns the subject pronoun matching a conjugated verb's person,
// or "" when the person is unknown.
func (t Token) Pronoun() string {
	switch t.Person {
	case 1:
		return "yo"
	case 2:
		return "tú"
	case 3:
		return "él"
	default:
		return ""
	}
}

// Option configures an [Analyzer].
type Option func(*Analyzer)

// WithVocabulary registers the words the lemmatizer may produce, usually every
// keyword of the symbol library. Infinitives among them are also treated as
// known verbs.
func WithVocabulary(words []string) Option {
	return func(a *Analyzer) {
		for _, w := range words {
			a.addWord(w)
		}
	}
}

// Analyzer tags and lemmatizes Spanish text against a known vocabulary. It
// is read-only after construction and safe for concurrent use.
type Analyzer struct {
	vocab map[string]string // normalized -> lower-cased form
	verbs map[string]string // normalized infinitive -> lower-cased form
}

// NewAnalyzer returns an Analyzer seeded with a base verb list.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		vocab: make(map[string]string),
		verbs: make(map[string]string),
	}
	for _, v := range baseVerbs {
		a.verbs[Normalize(v)] = v
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Analyzer) addWord(w string) {
	w = Fold(w)
	if w == "" || strings.ContainsRune(w, ' ') {
		return
	}
	n := Normalize(w)
	if _, ok := a.vocab[n]; !ok {
		a.vocab[n] = w
	}
	if looksInfinitive(n) {
		if _, noun := infinitiveLookalikes[w]; !noun {
			a.verbs[n] = w
		}
	}
}

// Analyze tokenizes text and tags every token.
func (a *Analyzer) Analyze(text string) []Token {
	words := Tokenize(text)
	out := make([]Token, 0, len(words))
	prevSubject := false
	for _, w := range words {
		tok := a.tag(w, prevSubject)
		_, prevSubject = subjectPronouns[Fold(w)]
		out = append(out, tok)
	}
	return out
}

var subjectPronouns = set("yo", "tú", "él", "ella", "nosotros", "nosotras", "ellos", "ellas", "usted", "ustedes")

func (a *Analyzer) tag(word string, afterSubject bool) Token {
	lower := Fold(word)
	tok := Token{Text: word, Norm: Normalize(word), Lemma: lower}

	if isNumeric(lower) {
		tok.POS = POSNum
		return tok
	}

	if afterSubject {
		if vf, ok := a.verb(lower); ok {
			tok.POS, tok.Lemma, tok.Person = POSVerb, vf.lemma, vf.person
			return tok
		}
	}

	if pos, ok := closedClass(lower); ok {
		tok.POS = pos
		return tok
	}
	if vf, ok := a.verb(lower); ok {
		tok.POS, tok.Lemma, tok.Person = POSVerb, vf.lemma, vf.person
		return tok
	}
	if _, ok := adjectives[lower]; ok {
		tok.POS = POSAdj
		return tok
	}
	if strings.HasSuffix(tok.Norm, "mente") && utf8.RuneCountInString(tok.Norm) > 7 {
		tok.POS = POSAdv
		return tok
	}

	tok.POS = POSNoun
	tok.Lemma = a.nounLemma(lower)
	return tok
}

// Lemma returns the dictionary form of word: the infinitive of a recognised
// verb form, the singular of a known plural, or the lower-cased word itself.
// Function words ("cómo", "como") are returned unchanged even when they
// look like a conjugation.
func (a *Analyzer) Lemma(word string) string {
	lower := Fold(word)
	if lower == "" {
		return ""
	}
	if _, ok := closedClass(lower); ok {
		return lower
	}
	if vf, ok := a.verb(lower); ok {
		return vf.lemma
	}
	return a.nounLemma(lower)
}

func (a *Analyzer) nounLemma(lower string) string {
	n := Normalize(lower)
	if w, ok := a.vocab[n]; ok {
		return w
	}
	for _, suf := range []string{"es", "s"} {
		if base, ok := strings.CutSuffix(n, suf); ok && base != "" {
			if w, ok := a.vocab[base]; ok {
				return w
			}
		}
	}
	return lower
}

// verb recognises an infinitive, an irregular form or a regular conjugation
// of a known verb.
func (a *Analyzer) verb(lower string) (verbForm, bool) {
	if vf, ok := irregular[lower]; ok {
		return vf, true
	}
	n := Normalize(lower)
	if inf, ok := a.verbs[n]; ok {
		return verbForm{lemma: inf}, true
	}
	// Enclitic "-se" / "-me" / "-te" on infinitives ("lavarse").
	for _, cl := range []string{"se", "me", "te"} {
		if base, ok := strings.CutSuffix(n, cl); ok {
			if inf, ok := a.verbs[base]; ok {
				return verbForm{lemma: inf}, true
			}
		}
	}
	for _, s := range regularSuffixes {
		base, ok := strings.CutSuffix(n, s.ending)
		if !ok || len(base) < 2 {
			continue
		}
		if inf, ok := a.verbs[base+s.class]; ok {
			return verbForm{lemma: inf, person: s.person}, true
		}
	}
	return verbForm{}, false
}

// FunctionWord reports whether word is a closed-class word such as an
// article, pronoun, preposition or conjunction.
func FunctionWord(word string) bool {
	_, ok := closedClass(Fold(word))
	return ok
}

func closedClass(lower string) (POS, bool) {
	switch {
	case has(determiners, lower):
		return POSDet, true
	case has(pronouns, lower):
		return POSPron, true
	case has(adpositions, lower):
		return POSAdp, true
	case has(conjunctions, lower):
		return POSConj, true
	case has(adverbs, lower):
		return POSAdv, true
	case has(interjections, lower):
		return POSIntj, true
	}
	return POSOther, false
}

func has(m map[string]struct{}, w string) bool {
	_, ok := m[w]
	return ok
}

func looksInfinitive(n string) bool {
	if utf8.RuneCountInString(n) < 3 {
		return false
	}
	return strings.HasSuffix(n, "ar") || strings.HasSuffix(n, "er") || strings.HasSuffix(n, "ir")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
