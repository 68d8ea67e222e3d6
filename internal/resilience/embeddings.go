package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
)

// ErrModelMismatch is returned by [EmbeddingsFallback.AddFallback] when the
// fallback encodes text with a different model than the primary.
var ErrModelMismatch = errors.New("resilience: embedding fallback must serve the same model")

// EmbeddingsFallback implements [embeddings.Provider] over replicas of one
// embedding model. Symbol vectors built by one replica are compared against
// query vectors from another, so every entry must report the primary's
// ModelID and Dimensions.
type EmbeddingsFallback struct {
	group *FallbackGroup[embeddings.Provider]
}

var _ embeddings.Provider = (*EmbeddingsFallback)(nil)

// NewEmbeddingsFallback creates an [EmbeddingsFallback] preferring primary.
func NewEmbeddingsFallback(primary embeddings.Provider, primaryName string, cfg FallbackConfig) *EmbeddingsFallback {
	if cfg.Kind == "" {
		cfg.Kind = "embeddings"
	}
	return &EmbeddingsFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another replica. It fails with [ErrModelMismatch]
// when p serves a different model or vector size.
func (f *EmbeddingsFallback) AddFallback(name string, p embeddings.Provider) error {
	primary := f.group.Primary()
	if p.ModelID() != primary.ModelID() {
		return fmt.Errorf("%w: %s serves %q, primary serves %q", ErrModelMismatch, name, p.ModelID(), primary.ModelID())
	}
	if d, pd := p.Dimensions(), primary.Dimensions(); d != 0 && pd != 0 && d != pd {
		return fmt.Errorf("%w: %s has %d dimensions, primary has %d", ErrModelMismatch, name, d, pd)
	}
	f.group.AddFallback(name, p)
	return nil
}

// Embed returns the vector of the first replica that answers.
func (f *EmbeddingsFallback) Embed(ctx context.Context, text string) ([]float32, error) {
	return ExecuteWithResult(ctx, f.group, func(p embeddings.Provider) ([]float32, error) {
		return p.Embed(ctx, text)
	})
}

// EmbedBatch returns the vectors of the first replica that answers.
func (f *EmbeddingsFallback) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return ExecuteWithResult(ctx, f.group, func(p embeddings.Provider) ([][]float32, error) {
		return p.EmbedBatch(ctx, texts)
	})
}

// Dimensions reports the primary's vector size.
func (f *EmbeddingsFallback) Dimensions() int { return f.group.Primary().Dimensions() }

// ModelID reports the primary's model.
func (f *EmbeddingsFallback) ModelID() string { return f.group.Primary().ModelID() }

// Group exposes the underlying group.
func (f *EmbeddingsFallback) Group() *FallbackGroup[embeddings.Provider] { return f.group }
