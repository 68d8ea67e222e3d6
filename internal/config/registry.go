package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
	"github.com/MrWong99/pictalk/pkg/provider/llm"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by the Create methods of [Registry]
// for a provider name nobody registered.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider of type T from its configuration entry.
type Factory[T any] func(ProviderEntry) (T, error)

// factories is one provider kind's name → constructor table.
type factories[T any] struct {
	kind   string
	byName map[string]Factory[T]
}

func newFactories[T any](kind string) factories[T] {
	return factories[T]{kind: kind, byName: make(map[string]Factory[T])}
}

func (f factories[T]) create(entry ProviderEntry) (T, error) {
	factory, ok := f.byName[entry.Name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	return factory(entry)
}

func (f factories[T]) names() []string {
	out := make([]string, 0, len(f.byName))
	for n := range f.byName {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Registry maps provider names to constructors for the three provider kinds
// a config can name: "llm", "embeddings" and "transcription". A later
// registration under the same name replaces the earlier one. It is safe for
// concurrent use.
type Registry struct {
	mu            sync.RWMutex
	llm           factories[llm.Provider]
	embeddings    factories[embeddings.Provider]
	transcription factories[stt.Transcriber]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		llm:           newFactories[llm.Provider]("llm"),
		embeddings:    newFactories[embeddings.Provider]("embeddings"),
		transcription: newFactories[stt.Transcriber]("transcription"),
	}
}

func (r *Registry) RegisterLLM(name string, f Factory[llm.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.byName[name] = f
}

func (r *Registry) RegisterEmbeddings(name string, f Factory[embeddings.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings.byName[name] = f
}

func (r *Registry) RegisterTranscriber(name string, f Factory[stt.Transcriber]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcription.byName[name] = f
}

// CreateLLM builds the generation provider named by entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.create(entry)
}

// CreateEmbeddings builds the embeddings provider named by entry.Name.
func (r *Registry) CreateEmbeddings(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embeddings.create(entry)
}

// CreateTranscriber builds the transcription provider named by entry.Name.
func (r *Registry) CreateTranscriber(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transcription.create(entry)
}

// Names returns the sorted registered provider names per kind.
func (r *Registry) Names() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		r.llm.kind:           r.llm.names(),
		r.embeddings.kind:    r.embeddings.names(),
		r.transcription.kind: r.transcription.names(),
	}
}
