// Package embeddings defines the Provider interface for text-embedding
// backends.
//
// Embeddings power dense symbol suggestion: every symbol's canonical keyword
// is encoded once when the index is built, and each utterance is encoded at
// query time and compared by cosine similarity. The embedding classifier also
// uses them to compare utterances against labelled prototypes.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider share the same dimensionality.
// Vectors from different models must never be compared with each other;
// callers that persist vectors key them by [Provider.ModelID].
type Provider interface {
	// Embed computes the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes one vector per input text in a single call. The i-th
	// result corresponds to texts[i]. On error the whole result is nil.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of every vector produced, or 0 when the
	// backend reports it only after the first request.
	Dimensions() int

	// ModelID returns the model identifier (e.g. "nomic-embed-text").
	ModelID() string
}
