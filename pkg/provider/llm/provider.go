// Package llm defines the Provider interface for text-generation backends.
//
// The dialogue engine uses generation for its open-ended fallback reply and,
// optionally, for intent and emotion classification. Both uses are single
// request/response completions; the engine never streams.
//
// Implementations must be safe for concurrent use.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation sent to the model.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text of the message.
	Content string
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a reply.
type CompletionRequest struct {
	// SystemPrompt is an optional instruction placed before Messages.
	SystemPrompt string

	// Messages is the ordered conversation. The last message drives the reply.
	Messages []Message

	// Temperature controls randomness. Zero leaves the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero leaves the provider default.
	MaxTokens int

	// JSON asks the backend to constrain output to a single JSON object when it
	// supports that. Callers must still validate the reply.
	JSON bool
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Provider is the abstraction over any text-generation backend.
type Provider interface {
	// Complete sends req to the model and waits for the full reply.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelID returns the model identifier, used for logs and metrics.
	ModelID() string
}

// Generate sends prompt as a single user message and returns the trimmed
// reply text. An empty reply is reported as an error so callers can fall back.
func Generate(ctx context.Context, p Provider, prompt string, maxTokens int) (string, error) {
	resp, err := p.Complete(ctx, CompletionRequest{
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("llm: %s returned an empty reply", p.ModelID())
	}
	return text, nil
}
