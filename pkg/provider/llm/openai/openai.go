// Package openai talks to the OpenAI chat completions endpoint, or to any
// server that speaks the same protocol (vLLM, LM Studio, a LiteLLM proxy).
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/pictalk/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

// ErrRefused is returned when the model declines to answer. The dialogue
// engine treats it like any other generation failure and falls back.
var ErrRefused = errors.New("openai: model refused the request")

// Provider implements [llm.Provider] on top of the official SDK client.
type Provider struct {
	client oai.Client
	model  string
}

// Option adjusts the SDK request options a Provider is built with.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithBaseURL(url)) }
}

// WithOrganization sends the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithOrganization(org)) }
}

// WithTimeout bounds each HTTP request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *[]option.RequestOption) {
		if d > 0 {
			*o = append(*o, option.WithHTTPClient(&http.Client{Timeout: d}))
		}
	}
}

// WithMaxRetries sets how often the SDK retries a failed request itself.
// The resilience layer already fails over, so pictalk passes 0 by default.
func WithMaxRetries(n int) Option {
	return func(o *[]option.RequestOption) { *o = append(*o, option.WithMaxRetries(n)) }
}

// New builds a Provider for model, authenticated with apiKey.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	switch {
	case apiKey == "":
		return nil, errors.New("openai: api key is required")
	case model == "":
		return nil, errors.New("openai: model is required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// ModelID implements [llm.Provider].
func (p *Provider) ModelID() string { return p.model }

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: %s: %w", p.model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %s: no choices returned", p.model)
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrRefused, choice.Message.Refusal)
	}
	if choice.FinishReason == "length" && choice.Message.Content == "" {
		return nil, fmt.Errorf("openai: %s: token limit hit before any output", p.model)
	}
	return &llm.CompletionResponse{
		Content: choice.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// roles maps pictalk message roles to SDK message constructors.
var roles = map[string]func(string) oai.ChatCompletionMessageParamUnion{
	llm.RoleSystem:    func(s string) oai.ChatCompletionMessageParamUnion { return oai.SystemMessage(s) },
	llm.RoleUser:      func(s string) oai.ChatCompletionMessageParamUnion { return oai.UserMessage(s) },
	llm.RoleAssistant: func(s string) oai.ChatCompletionMessageParamUnion { return oai.AssistantMessage(s) },
}

func (p *Provider) params(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	out := oai.ChatCompletionNewParams{Model: shared.ChatModel(p.model)}
	if req.SystemPrompt != "" {
		out.Messages = append(out.Messages, oai.SystemMessage(req.SystemPrompt))
	}
	for i, m := range req.Messages {
		build, ok := roles[m.Role]
		if !ok {
			return out, fmt.Errorf("openai: message %d: unsupported role %q", i, m.Role)
		}
		out.Messages = append(out.Messages, build(m.Content))
	}
	if req.Temperature != 0 {
		out.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		out.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.JSON {
		out.ResponseFormat.OfJSONObject = &shared.ResponseFormatJSONObjectParam{}
	}
	return out, nil
}
