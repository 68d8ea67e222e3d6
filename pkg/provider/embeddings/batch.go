package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrShortReply is returned when a backend answers with fewer or more
	// vectors than texts were sent.
	ErrShortReply = errors.New("embeddings: vector count does not match input")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the dimensionality declared for, or first seen from, the model.
	ErrDimensionMismatch = errors.New("embeddings: vector length changed")
)

// BatchFunc sends texts to a backend in one request.
type BatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Batcher turns a [BatchFunc] into the Embed and EmbedBatch halves of a
// [Provider]. Inputs larger than the backend's request limit are split, and
// every reply is checked for count and dimensionality. The first reply fixes
// the dimensionality when none was declared.
type Batcher struct {
	call     BatchFunc
	maxBatch int
	dims     atomic.Int64
}

// NewBatcher wraps call. maxBatch caps the texts per request (0 means no
// cap); dims is the declared vector length, or 0 to learn it.
func NewBatcher(call BatchFunc, maxBatch, dims int) *Batcher {
	b := &Batcher{call: call, maxBatch: maxBatch}
	b.dims.Store(int64(dims))
	return b
}

// Dimensions returns the declared or learned vector length, or 0 before the
// first reply of an undeclared model.
func (b *Batcher) Dimensions() int { return int(b.dims.Load()) }

// Embed embeds a single text.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in as few requests as the cap allows. An empty
// input returns (nil, nil) without a request.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := b.maxBatch
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		chunk := texts[start:min(start+size, len(texts))]
		vecs, err := b.call(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(chunk) {
			return nil, fmt.Errorf("%w: sent %d, got %d", ErrShortReply, len(chunk), len(vecs))
		}
		for _, v := range vecs {
			if err := b.check(len(v)); err != nil {
				return nil, err
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (b *Batcher) check(n int) error {
	if b.dims.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := b.dims.Load(); int64(n) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, n, want)
	}
	return nil
}
