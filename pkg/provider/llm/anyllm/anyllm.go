// Package anyllm reaches the generation backends pictalk does not talk to
// directly, through the unified github.com/mozilla-ai/any-llm-go client.
//
//	p, err := anyllm.New("ollama", "llama3.2", anyllmlib.WithBaseURL("http://gpu:11434"))
package anyllm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/pictalk/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

type constructor func(...anyllmlib.Option) (anyllmlib.Provider, error)

// wrap adapts a concrete any-llm constructor to the common signature.
func wrap[P anyllmlib.Provider](f func(...anyllmlib.Option) (P, error)) constructor {
	return func(opts ...anyllmlib.Option) (anyllmlib.Provider, error) { return f(opts...) }
}

var backends = map[string]constructor{
	"openai":    wrap(anyllmoai.New),
	"anthropic": wrap(anthropic.New),
	"gemini":    wrap(gemini.New),
	"ollama":    wrap(ollama.New),
	"deepseek":  wrap(deepseek.New),
	"mistral":   wrap(mistral.New),
	"groq":      wrap(groq.New),
	"llamacpp":  wrap(llamacpp.New),
	"llamafile": wrap(llamafile.New),
}

// jsonInstruction is appended to the system prompt of JSON requests, since
// any-llm has no portable response-format switch.
const jsonInstruction = "Responde únicamente con un objeto JSON válido."

// Backends returns the sorted backend names [New] accepts.
func Backends() []string {
	return slices.Sorted(maps.Keys(backends))
}

// Provider implements [llm.Provider] over one any-llm backend.
type Provider struct {
	backend anyllmlib.Provider
	name    string
	model   string
}

// New builds a Provider for the named backend. Hosted backends read their
// usual environment variable (ANTHROPIC_API_KEY, GEMINI_API_KEY, ...) when no
// key option is given; local ones only need a base URL.
func New(backend, model string, opts ...anyllmlib.Option) (*Provider, error) {
	name := strings.ToLower(strings.TrimSpace(backend))
	build, ok := backends[name]
	switch {
	case !ok:
		return nil, fmt.Errorf("anyllm: unknown backend %q (have %s)", backend, strings.Join(Backends(), ", "))
	case model == "":
		return nil, fmt.Errorf("anyllm: %s: model is required", name)
	}
	b, err := build(opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: %s: %w", name, err)
	}
	return &Provider{backend: b, name: name, model: model}, nil
}

// ModelID implements [llm.Provider].
func (p *Provider) ModelID() string { return p.model }

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anyllm: %s/%s: %w", p.name, p.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: %s/%s: no choices returned", p.name, p.model)
	}
	out := &llm.CompletionResponse{Content: resp.Choices[0].Message.ContentString()}
	if u := resp.Usage; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

func (p *Provider) params(req llm.CompletionRequest) (anyllmlib.CompletionParams, error) {
	out := anyllmlib.CompletionParams{Model: p.model}

	system := req.SystemPrompt
	if req.JSON {
		system = strings.TrimSpace(system + "\n" + jsonInstruction)
	}
	if system != "" {
		out.Messages = append(out.Messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: system})
	}
	for i, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		default:
			return out, fmt.Errorf("anyllm: message %d: unsupported role %q", i, m.Role)
		}
		out.Messages = append(out.Messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	if req.Temperature != 0 {
		out.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = &req.MaxTokens
	}
	return out, nil
}
