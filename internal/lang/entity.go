package lang

import (
	"unicode"
	"unicode/utf8"
)

// Entity labels produced by [Analyzer.Entities].
const (
	EntityNumber = "NUM"
	EntityDate   = "DATE"
	EntityPerson = "PER"
)

// Entity is a span of an utterance with a semantic label.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

var dateWords = set(
	"hoy", "mañana", "ayer", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo",
	"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto",
	"septiembre", "octubre", "noviembre", "diciembre", "navidad", "cumpleaños",
)

// Entities extracts numbers, dates and capitalised names from analysed
// tokens. A capitalised first token is not treated as a name because it is
// usually just the start of the sentence.
func (a *Analyzer) Entities(tokens []Token) []Entity {
	var out []Entity
	for i, t := range tokens {
		lower := Fold(t.Text)
		switch {
		case t.POS == POSNum:
			out = append(out, Entity{Text: t.Text, Label: EntityNumber})
		case has(dateWords, lower):
			out = append(out, Entity{Text: t.Text, Label: EntityDate})
		case i > 0 && t.POS == POSNoun && capitalised(t.Text):
			out = append(out, Entity{Text: t.Text, Label: EntityPerson})
		}
	}
	return out
}

func capitalised(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
