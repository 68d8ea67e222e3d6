package resilience

import (
	"context"

	"github.com/MrWong99/pictalk/pkg/provider/llm"
)

// GeneratorFallback implements [llm.Provider] over an ordered list of
// generation backends.
type GeneratorFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*GeneratorFallback)(nil)

// NewGeneratorFallback creates a [GeneratorFallback] preferring primary.
func NewGeneratorFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *GeneratorFallback {
	if cfg.Kind == "" {
		cfg.Kind = "llm"
	}
	return &GeneratorFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another generation backend.
func (f *GeneratorFallback) AddFallback(name string, p llm.Provider) {
	f.group.AddFallback(name, p)
}

// Complete returns the reply of the first backend that answers.
func (f *GeneratorFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// ModelID reports the primary's model.
func (f *GeneratorFallback) ModelID() string { return f.group.Primary().ModelID() }

// Group exposes the underlying group, mainly for health reporting.
func (f *GeneratorFallback) Group() *FallbackGroup[llm.Provider] { return f.group }
