// Package mock provides a canned [embeddings.Provider] for tests.
//
// Vectors are looked up per input text, so a test can lay out a small
// vector space by hand:
//
//	p := &mock.Provider{
//	    Vectors:         map[string][]float32{"gato": {1, 0}, "perro": {0, 1}},
//	    DimensionsValue: 2,
//	    ModelIDValue:    "test-embed",
//	}
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
)

var _ embeddings.Provider = (*Provider)(nil)

// Provider answers from Vectors and records what it was asked.
type Provider struct {
	// Vectors maps an input text to its vector. Other texts get DefaultVector.
	Vectors       map[string][]float32
	DefaultVector []float32

	// EmbedErr fails Embed; EmbedBatchErr fails EmbedBatch.
	EmbedErr      error
	EmbedBatchErr error

	DimensionsValue int
	ModelIDValue    string

	mu      sync.Mutex
	single  []string
	batches [][]string
}

func (p *Provider) vector(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		return v
	}
	return p.DefaultVector
}

func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.single = append(p.single, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vector(text), nil
}

func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, slices.Clone(texts))
	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

func (p *Provider) Dimensions() int { return p.DimensionsValue }

func (p *Provider) ModelID() string { return p.ModelIDValue }

// Calls returns how often Embed and EmbedBatch were called.
func (p *Provider) Calls() (embed, batch int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.single), len(p.batches)
}

// Embedded returns every text sent so far, single and batched, in order of
// the calls within each kind.
func (p *Provider) Embedded() (single []string, batches [][]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.single), slices.Clone(p.batches)
}
