package dialogue

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// All lexicon entries are normalized (lower-case, no diacritics) and are
// compared against normalized utterance tokens.
var (
	gameKeywords  = lexicon("juego", "jugar", "juguemos", "adivinanza")
	drillKeywords = lexicon("practicar", "practica", "practiquemos", "ejercicio", "drill", "repasar")
	healthWords   = lexicon("duele", "dolor", "enfermo", "fiebre", "mareado", "herida", "sangre", "vomitar", "medico", "hospital")
	taskWords     = lexicon("tarea", "deberes")
	fillerWords   = lexicon("el", "la", "los", "las", "un", "una", "unos", "unas", "de", "del", "con")

	skipPhrases     = []string{"saltar", "salta", "siguiente", "otra", "otra palabra", "paso", "cambiar", "no se", "skip"}
	greetingPhrases = []string{"hola", "buenas", "buenos dias", "buenas tardes", "buenas noches", "hey", "saludos"}

	emotionWords = map[string]classify.Emotion{
		"triste":     classify.EmotionSad,
		"llorar":     classify.EmotionSad,
		"miedo":      classify.EmotionAnxious,
		"nervioso":   classify.EmotionAnxious,
		"preocupado": classify.EmotionAnxious,
		"ansioso":    classify.EmotionAnxious,
		"enfadado":   classify.EmotionAngry,
		"enojado":    classify.EmotionAngry,
		"rabia":      classify.EmotionAngry,
		"orgulloso":  classify.EmotionProud,
		"tranquilo":  classify.EmotionCalm,
		"calmado":    classify.EmotionCalm,
		"feliz":      classify.EmotionCalm,
		"contento":   classify.EmotionCalm,
	}

	gamePattern  = regexp.MustCompile(`^(?:jugar|juguemos|vamos a jugar|play) (?:a )?(.+)$`)
	questionHead = regexp.MustCompile(`^(?:que|como|cual) (?:es|son|esta|estan|significa|se llama) (.+)$`)
)

func lexicon(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// words returns the normalized tokens of text.
func words(text string) []string {
	toks := lang.Tokenize(text)
	for i, t := range toks {
		toks[i] = lang.Normalize(t)
	}
	return toks
}

func anyIn(toks []string, set map[string]struct{}) (string, bool) {
	for _, t := range toks {
		if _, ok := set[t]; ok {
			return t, true
		}
	}
	return "", false
}

// hasPhrase reports whether the words of phrase occur contiguously in toks.
func hasPhrase(toks []string, phrase string) bool {
	want := strings.Fields(phrase)
	if len(want) == 0 || len(want) > len(toks) {
		return false
	}
outer:
	for i := 0; i+len(want) <= len(toks); i++ {
		for j, w := range want {
			if toks[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}

func isSkip(toks []string) bool {
	for _, p := range skipPhrases {
		if hasPhrase(toks, p) {
			return true
		}
	}
	return false
}

// isGreeting reports whether the utterance opens with a greeting.
func isGreeting(toks []string) bool {
	for _, p := range greetingPhrases {
		n := len(strings.Fields(p))
		if n <= len(toks) && hasPhrase(toks[:n], p) {
			return true
		}
	}
	return false
}

// lexicalEmotion returns the emotion named by the first emotion word in toks.
func lexicalEmotion(toks []string) (classify.Emotion, bool) {
	for _, t := range toks {
		if e, ok := emotionWords[t]; ok {
			return e, true
		}
	}
	return "", false
}

// trimFillers drops leading articles and prepositions.
func trimFillers(toks []string) []string {
	for len(toks) > 0 {
		if _, ok := fillerWords[toks[0]]; !ok {
			break
		}
		toks = toks[1:]
	}
	return toks
}

// categoryVariants returns n and its forms without a plural "s" or "es".
func categoryVariants(n string) []string {
	out := []string{n}
	if base, ok := strings.CutSuffix(n, "es"); ok && base != "" {
		out = append(out, base)
	}
	if base, ok := strings.CutSuffix(n, "s"); ok && base != "" {
		out = append(out, base)
	}
	return out
}

// matchCategory returns the tag among categories that requested names. Tags
// match when their normalized forms are equal, or equal once a plural "s" or
// "es" is removed from either side.
func matchCategory(categories []string, requested string) (string, bool) {
	req := strings.Join(trimFillers(words(requested)), " ")
	if req == "" {
		return "", false
	}
	reqForms := categoryVariants(req)
	for _, c := range categories {
		for _, cf := range categoryVariants(lang.Normalize(c)) {
			for _, rf := range reqForms {
				if cf == rf {
					return c, true
				}
			}
		}
	}
	return "", false
}

// clue returns the first 1+failures runes of answer, upper-cased and clamped
// to the answer's length.
func clue(answer string, failures int) string {
	r := []rune(answer)
	n := min(1+max(failures, 0), len(r))
	return strings.ToUpper(string(r[:n]))
}

// maxDrillKeyword is the longest canonical keyword accepted in a drill.
const maxDrillKeyword = 8

// drillable reports whether e can be used in a drill: a short, letters-only
// canonical keyword whose asset exists.
func drillable(lib *symbol.Library, e symbol.Entry) bool {
	kw := e.Keyword()
	if kw == "" || utf8.RuneCountInString(kw) > maxDrillKeyword {
		return false
	}
	for _, r := range kw {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return lib.AssetExists(e.AssetPath)
}

// overlapRatio is the share of reply's distinct normalized tokens that also
// occur in question.
func overlapRatio(reply, question string) float64 {
	r := lang.NormalizedSet(reply)
	if len(r) == 0 {
		return 0
	}
	q := lang.NormalizedSet(question)
	hits := 0
	for t := range r {
		if _, ok := q[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(r))
}
