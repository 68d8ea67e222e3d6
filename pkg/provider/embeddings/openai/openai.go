// Package openai embeds text with the OpenAI embeddings endpoint or a
// compatible server.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
)

// DefaultModel is used when no model is configured.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// maxInputs is the per-request input limit of the embeddings endpoint.
const maxInputs = 2048

var _ embeddings.Provider = (*Provider)(nil)

// Provider implements [embeddings.Provider].
type Provider struct {
	*embeddings.Batcher
	client    oai.Client
	model     string
	shortened int
}

// Option configures a Provider.
type Option func(*Provider, *[]option.RequestOption)

// WithBaseURL points the client at a compatible server.
func WithBaseURL(url string) Option {
	return func(_ *Provider, o *[]option.RequestOption) { *o = append(*o, option.WithBaseURL(url)) }
}

// WithTimeout bounds each HTTP request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(_ *Provider, o *[]option.RequestOption) {
		if d > 0 {
			*o = append(*o, option.WithHTTPClient(&http.Client{Timeout: d}))
		}
	}
}

// WithDimensions asks a text-embedding-3 model for vectors of length dims.
func WithDimensions(dims int) Option {
	return func(p *Provider, _ *[]option.RequestOption) { p.shortened = dims }
}

// New builds a Provider. An empty model selects [DefaultModel].
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai embeddings: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	p := &Provider{model: model}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(p, &reqOpts)
	}
	p.client = oai.NewClient(reqOpts...)

	dims := p.shortened
	if dims <= 0 {
		dims = nativeDimensions(model)
	}
	p.Batcher = embeddings.NewBatcher(p.request, maxInputs, dims)
	return p, nil
}

// ModelID implements [embeddings.Provider].
func (p *Provider) ModelID() string { return p.model }

func (p *Provider) request(ctx context.Context, texts []string) ([][]float32, error) {
	params := oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if p.shortened > 0 {
		params.Dimensions = param.NewOpt(int64(p.shortened))
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %s: %w", p.model, err)
	}

	// Entries carry their input index and may arrive in any order.
	out := make([][]float32, len(resp.Data))
	for _, e := range resp.Data {
		if e.Index < 0 || int(e.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: %s: index %d out of range", p.model, e.Index)
		}
		v := make([]float32, len(e.Embedding))
		for i, f := range e.Embedding {
			v[i] = float32(f)
		}
		out[e.Index] = v
	}
	return out, nil
}

func nativeDimensions(model string) int {
	if strings.Contains(strings.ToLower(model), "text-embedding-3-large") {
		return 3072
	}
	return 1536
}
