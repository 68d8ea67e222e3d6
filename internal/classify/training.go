package classify

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed training.yaml
var trainingYAML string

// Examples holds labelled utterances per intent and emotion label.
type Examples struct {
	Intents  map[Intent][]string  `yaml:"intents"`
	Emotions map[Emotion][]string `yaml:"emotions"`
}

// DefaultExamples returns the built-in training examples.
func DefaultExamples() Examples {
	ex, err := LoadExamples(strings.NewReader(trainingYAML))
	if err != nil {
		panic("classify: built-in training data: " + err.Error())
	}
	return ex
}

// LoadExamples decodes examples from YAML and rejects unknown labels.
func LoadExamples(r io.Reader) (Examples, error) {
	var ex Examples
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ex); err != nil {
		return Examples{}, fmt.Errorf("classify: decode examples: %w", err)
	}
	for label := range ex.Intents {
		if _, ok := ParseIntent(string(label)); !ok {
			return Examples{}, fmt.Errorf("classify: unknown intent label %q", label)
		}
	}
	for label := range ex.Emotions {
		if _, ok := ParseEmotion(string(label)); !ok {
			return Examples{}, fmt.Errorf("classify: unknown emotion label %q", label)
		}
	}
	return ex, nil
}
