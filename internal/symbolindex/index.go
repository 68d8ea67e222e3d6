// Package symbolindex resolves words to pictograms and ranks pictograms for
// free text.
//
// Resolution walks a fixed chain: the lower-cased word against keywords, its
// accent-free form against accent-free keywords, then the same two lookups
// for the word's lemma. Suggestion ranks entries by cosine similarity of
// keyword embeddings when an embedding backend is configured and built, and
// by normalized token overlap otherwise.
package symbolindex

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MrWong99/pictalk/internal/lang"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/embeddings"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// Stage names the step of the resolution chain that produced a match.
type Stage int

const (
	StageNone Stage = iota
	StageExact
	StageNormalized
	StageLemma
	StageNormalizedLemma
)

// String returns the metric label of the stage.
func (s Stage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageNormalized:
		return "normalized"
	case StageLemma:
		return "lemma"
	case StageNormalizedLemma:
		return "normalized_lemma"
	default:
		return "none"
	}
}

// Suggestion is one ranked candidate returned by [Index.Suggest].
type Suggestion struct {
	Path    string  `json:"path"`
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

const defaultQueryCacheSize = 512

// Option configures an [Index].
type Option func(*Index)

// WithEmbeddings enables dense suggestion through p. The dense index is only
// used after a successful [Index.Build].
func WithEmbeddings(p embeddings.Provider) Option {
	return func(ix *Index) { ix.embedder = p }
}

// WithEmbeddingCache stores and reuses keyword vectors across restarts.
func WithEmbeddingCache(c memory.EmbeddingCache) Option {
	return func(ix *Index) { ix.cache = c }
}

// WithQueryCacheSize sets how many query embeddings are kept in memory.
// Zero disables the cache.
func WithQueryCacheSize(n int) Option {
	return func(ix *Index) { ix.queryCacheSize = n }
}

// WithAnalyzer replaces the analyzer used for lemmas. By default the index
// builds one whose vocabulary is every keyword of the library.
func WithAnalyzer(a *lang.Analyzer) Option {
	return func(ix *Index) { ix.analyzer = a }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.log = l }
}

// WithMetrics records resolution and suggestion counters on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(ix *Index) { ix.metrics = m }
}

// Index is built once from a [symbol.Library] and is then read-only, apart
// from the dense vectors installed by [Index.Build]. All methods are safe for
// concurrent use.
type Index struct {
	lib      *symbol.Library
	entries  []symbol.Entry
	analyzer *lang.Analyzer

	exact      map[string]int // lower-cased keyword -> entry
	normalized map[string]int // accent-free keyword -> entry
	terms      []map[string]struct{}

	embedder       embeddings.Provider
	cache          memory.EmbeddingCache
	queryCacheSize int
	queries        *lru.Cache[string, []float32]
	dense          atomic.Pointer[denseIndex]

	log     *slog.Logger
	metrics *observe.Metrics
}

// New indexes every entry of lib. Keywords shared by several entries resolve
// to the first entry in catalog order.
func New(lib *symbol.Library, opts ...Option) *Index {
	ix := &Index{
		lib:            lib,
		entries:        lib.Entries(),
		queryCacheSize: defaultQueryCacheSize,
		log:            slog.Default(),
	}
	for _, o := range opts {
		o(ix)
	}

	var vocab []string
	ix.exact = make(map[string]int, len(ix.entries))
	ix.normalized = make(map[string]int, len(ix.entries))
	ix.terms = make([]map[string]struct{}, len(ix.entries))
	for i, e := range ix.entries {
		terms := make(map[string]struct{})
		for _, kw := range e.Keywords {
			lower := lang.Fold(kw)
			if lower == "" {
				continue
			}
			vocab = append(vocab, lower)
			if _, ok := ix.exact[lower]; !ok {
				ix.exact[lower] = i
			}
			if n := lang.Normalize(kw); n != "" {
				if _, ok := ix.normalized[n]; !ok {
					ix.normalized[n] = i
				}
			}
			for t := range lang.NormalizedSet(kw) {
				terms[t] = struct{}{}
			}
		}
		for _, tag := range e.Tags {
			for t := range lang.NormalizedSet(tag) {
				terms[t] = struct{}{}
			}
		}
		ix.terms[i] = terms
	}
	if ix.analyzer == nil {
		ix.analyzer = lang.NewAnalyzer(lang.WithVocabulary(vocab))
	}
	if ix.queryCacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		ix.queries, _ = lru.New[string, []float32](ix.queryCacheSize)
	}
	return ix
}

// Library returns the library the index was built from.
func (ix *Index) Library() *symbol.Library { return ix.lib }

// Analyzer returns the analyzer used for lemmas.
func (ix *Index) Analyzer() *lang.Analyzer { return ix.analyzer }

// Dense reports whether suggestions currently use embeddings.
func (ix *Index) Dense() bool {
	d := ix.dense.Load()
	return d != nil && len(d.rows) > 0
}

// Resolve returns the entry for word and the stage that matched. ok is false
// when no stage matches; that is an ordinary outcome, not an error.
func (ix *Index) Resolve(word string) (e symbol.Entry, stage Stage, ok bool) {
	lower := lang.Fold(word)
	if lower == "" {
		return symbol.Entry{}, StageNone, false
	}
	i, stage := ix.lookup(lower)
	if stage == StageNone {
		lemma := ix.analyzer.Lemma(lower)
		if lemma != "" {
			if i, ok = ix.exact[lang.Fold(lemma)]; ok {
				stage = StageLemma
			} else if i, ok = ix.normalized[lang.Normalize(lemma)]; ok {
				stage = StageNormalizedLemma
			}
		}
	}
	if stage == StageNone {
		return symbol.Entry{}, StageNone, false
	}
	if ix.metrics != nil {
		ix.metrics.RecordResolve(context.Background(), stage.String())
	}
	return ix.entries[i], stage, true
}

// ResolvePath is [Index.Resolve] reduced to the asset path, "" when unresolved.
func (ix *Index) ResolvePath(word string) string {
	e, _, ok := ix.Resolve(word)
	if !ok {
		return ""
	}
	return e.AssetPath
}

func (ix *Index) lookup(lower string) (int, Stage) {
	if i, ok := ix.exact[lower]; ok {
		return i, StageExact
	}
	if i, ok := ix.normalized[lang.Normalize(lower)]; ok {
		return i, StageNormalized
	}
	return 0, StageNone
}

// keywordOf returns the canonical keyword of entry i, lower-cased.
func (ix *Index) keywordOf(i int) string {
	return strings.ToLower(ix.entries[i].Keyword())
}
