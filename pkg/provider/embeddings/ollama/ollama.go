// Package ollama embeds text with a local Ollama server through Ollama's
// own Go client.
//
//	p, err := ollama.New("", "nomic-embed-text") // http://localhost:11434
//	vec, err := p.Embed(ctx, "gato")
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// maxInputs keeps a catalog rebuild from sending one huge request.
const maxInputs = 256

// modelDimensions lists vector lengths of common embedding models by name
// prefix. Other models learn it from the first reply.
var modelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
	"bge-m3":            1024,
}

var _ embeddings.Provider = (*Provider)(nil)

// Provider implements [embeddings.Provider].
type Provider struct {
	*embeddings.Batcher
	client *api.Client
	model  string
}

// Option configures a Provider.
type Option func(*settings)

type settings struct {
	http *http.Client
	dims int
}

// WithTimeout bounds each HTTP request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.http.Timeout = d }
}

// WithDimensions declares the vector length of a model missing from the
// built-in table.
func WithDimensions(dims int) Option {
	return func(s *settings) { s.dims = dims }
}

// New builds a Provider for model. An empty baseURL selects
// [DefaultBaseURL].
func New(baseURL, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("ollama embeddings: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: base url %q: %w", baseURL, err)
	}
	s := settings{http: &http.Client{}}
	for _, o := range opts {
		o(&s)
	}
	if s.dims == 0 {
		s.dims = knownDimensions(model)
	}

	p := &Provider{client: api.NewClient(u, s.http), model: model}
	p.Batcher = embeddings.NewBatcher(p.request, maxInputs, s.dims)
	return p, nil
}

// ModelID implements [embeddings.Provider].
func (p *Provider) ModelID() string { return p.model }

func (p *Provider) request(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embed(ctx, &api.EmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %s: %w", p.model, err)
	}
	return resp.Embeddings, nil
}

func knownDimensions(model string) int {
	name := strings.ToLower(model)
	for prefix, dims := range modelDimensions {
		if strings.HasPrefix(name, prefix) {
			return dims
		}
	}
	return 0
}
