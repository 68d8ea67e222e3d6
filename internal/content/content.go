// Package content holds the curated support texts the dialogue router speaks
// with: scripted replies, exercise messages, prompt prefixes, related
// vocabulary and fixed question/answer scenarios.
//
// A [Pack] is plain data. Lookups never fail: a key missing from a loaded
// pack falls back to the built-in [Default] pack, and a key missing there
// yields the empty string.
package content

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/pictalk/internal/lang"
)

// Section names a group of texts in a [Pack].
type Section string

const (
	SectionGeneral    Section = "general"
	SectionAssignment Section = "assignment"
	SectionGuided     Section = "guided_session"
	SectionGame       Section = "game"
	SectionDrill      Section = "drill"
	SectionEmotions   Section = "emotions"
)

// Pack is a set of curated texts. Placeholders in braces ({task}, {words},
// {clue}, {word}, {associations}, {category}) are filled by [Render].
type Pack struct {
	Title         string            `yaml:"title,omitempty"`
	General       map[string]string `yaml:"general,omitempty"`
	Assignment    map[string]string `yaml:"assignment,omitempty"`
	GuidedSession map[string]string `yaml:"guided_session,omitempty"`
	Game          map[string]string `yaml:"game,omitempty"`
	Drill         map[string]string `yaml:"drill,omitempty"`

	// Emotions maps an emotion label to the check-in reply for it.
	Emotions map[string]string `yaml:"emotions,omitempty"`

	// RelatedVocab maps a word to words associated with it.
	RelatedVocab map[string][]string `yaml:"related_vocab,omitempty"`

	// Scenarios maps a fixed question to its answer.
	Scenarios map[string]string `yaml:"scenarios,omitempty"`
}

func (p *Pack) section(s Section) map[string]string {
	if p == nil {
		return nil
	}
	switch s {
	case SectionGeneral:
		return p.General
	case SectionAssignment:
		return p.Assignment
	case SectionGuided:
		return p.GuidedSession
	case SectionGame:
		return p.Game
	case SectionDrill:
		return p.Drill
	case SectionEmotions:
		return p.Emotions
	}
	return nil
}

// Text returns the text stored under key in section s, falling back to the
// built-in pack.
func (p *Pack) Text(s Section, key string) string {
	if v, ok := p.section(s)[key]; ok && v != "" {
		return v
	}
	return defaultPack.section(s)[key]
}

// Related returns the words associated with word. The lookup ignores case
// and accents and falls back to the built-in pack.
func (p *Pack) Related(word string) []string {
	key := lang.Normalize(word)
	if key == "" {
		return nil
	}
	for _, src := range []*Pack{p, defaultPack} {
		if src == nil {
			continue
		}
		for k, v := range src.RelatedVocab {
			if lang.Normalize(k) == key && len(v) > 0 {
				return v
			}
		}
	}
	return nil
}

// Scenario returns the scripted answer for utterance. Matching ignores case,
// accents and punctuation.
func (p *Pack) Scenario(utterance string) (string, bool) {
	key := scenarioKey(utterance)
	if key == "" {
		return "", false
	}
	for _, src := range []*Pack{p, defaultPack} {
		if src == nil {
			continue
		}
		for q, a := range src.Scenarios {
			if scenarioKey(q) == key {
				return a, true
			}
		}
	}
	return "", false
}

func scenarioKey(s string) string {
	return lang.Normalize(strings.Join(lang.Tokenize(s), " "))
}

// Validate reports texts whose placeholders are not closed.
func (p *Pack) Validate() error {
	var errs []error
	for _, s := range []Section{SectionGeneral, SectionAssignment, SectionGuided, SectionGame, SectionDrill, SectionEmotions} {
		for k, v := range p.section(s) {
			if strings.Count(v, "{") != strings.Count(v, "}") {
				errs = append(errs, fmt.Errorf("content: %s.%s has unbalanced braces", s, k))
			}
		}
	}
	return errors.Join(errs...)
}

// Render replaces every {name} in tmpl with vars[name]. Placeholders without
// a value are removed.
func Render(tmpl string, vars map[string]string) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:open])
		b.WriteString(vars[tmpl[open+1:open+end]])
		tmpl = tmpl[open+end+1:]
	}
	return b.String()
}

// Load reads a YAML content pack from path.
func Load(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: open %q: %w", path, err)
	}
	defer f.Close()

	p, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("content: parse %q: %w", path, err)
	}
	return p, nil
}

// LoadFromReader decodes a YAML content pack from r.
func LoadFromReader(r io.Reader) (*Pack, error) {
	p := &Pack{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("content: decode yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
