// Package llmclass implements the classification ports by prompting a
// language model for a JSON verdict.
//
// The model is asked for a single JSON object with a label from the closed
// set and a confidence. Replies that cannot be parsed, or that name an
// unknown label, degrade to the lowest-priority label with confidence 0
// rather than an error; only transport failures are returned.
package llmclass

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrWong99/pictalk/internal/classify"
	"github.com/MrWong99/pictalk/pkg/provider/llm"
)

var (
	_ classify.IntentClassifier  = (*Classifier)(nil)
	_ classify.EmotionClassifier = (*Classifier)(nil)
)

const (
	defaultTemperature = 0.0
	defaultMaxTokens   = 60
)

const systemPromptTemplate = `Eres un clasificador para una aplicación de comunicación aumentativa con niños.

Clasifica el mensaje del usuario en exactamente una de estas etiquetas de %s:
%s

Responde SOLO con un objeto JSON con este formato exacto (sin markdown, sin texto adicional):
{"label": "<etiqueta>", "confidence": <0.0-1.0>}`

type verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Option is a functional option for configuring a [Classifier].
type Option func(*Classifier)

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(c *Classifier) { c.temperature = temp }
}

// Classifier asks an [llm.Provider] for labels. It is safe for concurrent use
// when the provider is.
type Classifier struct {
	llm         llm.Provider
	temperature float64
}

// New returns a Classifier backed by provider.
func New(provider llm.Provider, opts ...Option) *Classifier {
	c := &Classifier{llm: provider, temperature: defaultTemperature}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ClassifyIntent implements [classify.IntentClassifier].
func (c *Classifier) ClassifyIntent(ctx context.Context, text string) (classify.IntentResult, error) {
	if classify.Blank(text) {
		return classify.UnknownIntent, nil
	}
	labels := make([]string, len(classify.Intents))
	for i, in := range classify.Intents {
		labels[i] = string(in)
	}
	v, err := c.ask(ctx, "intención", labels, text)
	if err != nil {
		return classify.UnknownIntent, err
	}
	label, ok := classify.ParseIntent(v.Label)
	if !ok {
		return classify.UnknownIntent, nil
	}
	return classify.NewIntentResult(label, v.Confidence), nil
}

// ClassifyEmotion implements [classify.EmotionClassifier].
func (c *Classifier) ClassifyEmotion(ctx context.Context, text string) (classify.EmotionResult, error) {
	if classify.Blank(text) {
		return classify.UnknownEmotion, nil
	}
	labels := make([]string, len(classify.Emotions))
	for i, e := range classify.Emotions {
		labels[i] = string(e)
	}
	v, err := c.ask(ctx, "emoción", labels, text)
	if err != nil {
		return classify.UnknownEmotion, err
	}
	label, ok := classify.ParseEmotion(v.Label)
	if !ok {
		return classify.UnknownEmotion, nil
	}
	return classify.NewEmotionResult(label, v.Confidence), nil
}

func (c *Classifier) ask(ctx context.Context, kind string, labels []string, text string) (verdict, error) {
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: buildSystemPrompt(kind, labels),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature:  c.temperature,
		MaxTokens:    defaultMaxTokens,
		JSON:         true,
	})
	if err != nil {
		return verdict{}, fmt.Errorf("llmclass: complete: %w", err)
	}
	var v verdict
	if err := json.Unmarshal([]byte(stripMarkdown(resp.Content)), &v); err != nil {
		// Unparseable verdicts count as unclassified.
		return verdict{}, nil
	}
	return v, nil
}

func buildSystemPrompt(kind string, labels []string) string {
	var sb strings.Builder
	for _, l := range labels {
		sb.WriteString("- ")
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return fmt.Sprintf(systemPromptTemplate, kind, sb.String())
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
