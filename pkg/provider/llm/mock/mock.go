// Package mock provides a test double for the llm.Provider interface.
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: "¡Hola!"},
//	}
//
// Replies may also be chosen per prompt with ReplyFunc, which receives the
// request and takes precedence over CompleteResponse.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/pictalk/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete when ReplyFunc is nil. A nil
	// value yields an empty response.
	CompleteResponse *llm.CompletionResponse

	// ReplyFunc, if set, produces the reply text for each request.
	ReplyFunc func(req llm.CompletionRequest) string

	// CompleteErr, if non-nil, is returned by Complete.
	CompleteErr error

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// CompleteCalls records every call to Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured reply.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Req: req})
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if p.ReplyFunc != nil {
		return &llm.CompletionResponse{Content: p.ReplyFunc(req)}, nil
	}
	if p.CompleteResponse == nil {
		return &llm.CompletionResponse{}, nil
	}
	resp := *p.CompleteResponse
	return &resp, nil
}

// ModelID returns ModelIDValue, or "mock" when unset.
func (p *Provider) ModelID() string {
	if p.ModelIDValue == "" {
		return "mock"
	}
	return p.ModelIDValue
}

// Calls returns a copy of the recorded Complete calls.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}
