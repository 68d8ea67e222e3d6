package symbolindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/MrWong99/pictalk/internal/lang"
)

// embedBatchSize bounds the number of keywords sent per EmbedBatch call.
const embedBatchSize = 256

type denseRow struct {
	entry  int
	vector []float32
	norm   float32
}

type denseIndex struct {
	dims int
	rows []denseRow
}

// Build embeds the canonical keyword of every entry and installs the dense
// index. Vectors found in the embedding cache are reused and new ones are
// written back. Without an embedding backend Build is a no-op.
//
// On error the previous dense index, if any, stays active and suggestions keep
// working through token overlap.
func (ix *Index) Build(ctx context.Context) error {
	if ix.embedder == nil {
		return nil
	}
	start := time.Now()
	model := ix.embedder.ModelID()

	keys := make([]string, 0, len(ix.entries))
	seen := make(map[string]struct{}, len(ix.entries))
	for i := range ix.entries {
		kw := ix.keywordOf(i)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keys = append(keys, kw)
	}

	vectors := make(map[string][]float32, len(keys))
	if ix.cache != nil {
		cached, err := ix.cache.GetEmbeddings(ctx, model, keys)
		if err != nil {
			ix.log.Warn("symbolindex: embedding cache unavailable", "model", model, "err", err)
		}
		for k, v := range cached {
			vectors[k] = v
		}
	}

	var missing []string
	for _, k := range keys {
		if _, ok := vectors[k]; !ok {
			missing = append(missing, k)
		}
	}
	fresh := make(map[string][]float32, len(missing))
	for lo := 0; lo < len(missing); lo += embedBatchSize {
		batch := missing[lo:min(lo+embedBatchSize, len(missing))]
		embs, err := ix.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("symbolindex: embed keywords: %w", err)
		}
		if len(embs) != len(batch) {
			return fmt.Errorf("symbolindex: embed keywords: got %d vectors for %d keywords", len(embs), len(batch))
		}
		for i, k := range batch {
			fresh[k] = embs[i]
			vectors[k] = embs[i]
		}
	}
	if ix.cache != nil && len(fresh) > 0 {
		if err := ix.cache.PutEmbeddings(ctx, model, fresh); err != nil {
			ix.log.Warn("symbolindex: could not cache embeddings", "model", model, "err", err)
		}
	}

	d := &denseIndex{dims: ix.embedder.Dimensions()}
	for i := range ix.entries {
		v, ok := vectors[ix.keywordOf(i)]
		if !ok || len(v) == 0 {
			continue
		}
		if d.dims <= 0 {
			d.dims = len(v)
		}
		if len(v) != d.dims {
			continue
		}
		n := vek32.Norm(v)
		if n == 0 {
			continue
		}
		d.rows = append(d.rows, denseRow{entry: i, vector: v, norm: n})
	}
	if len(d.rows) == 0 {
		return errors.New("symbolindex: embedding backend returned no usable vectors")
	}
	ix.dense.Store(d)
	ix.log.Info("symbolindex: dense index built",
		"model", model,
		"entries", len(d.rows),
		"embedded", len(fresh),
		"cached", len(keys)-len(missing),
		"duration", time.Since(start),
	)
	return nil
}

func (ix *Index) suggestDense(ctx context.Context, d *denseIndex, text string, k int) ([]Suggestion, error) {
	q, err := ix.queryVector(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(q) != d.dims {
		return nil, fmt.Errorf("symbolindex: query vector has %d dimensions, index has %d", len(q), d.dims)
	}
	qn := vek32.Norm(q)
	if qn == 0 {
		return nil, errors.New("symbolindex: zero query vector")
	}
	out := make([]Suggestion, 0, len(d.rows))
	for _, r := range d.rows {
		score := vek32.Dot(q, r.vector) / (qn * r.norm)
		out = append(out, Suggestion{
			Path:    ix.entries[r.entry].AssetPath,
			Keyword: ix.entries[r.entry].Keyword(),
			Score:   float64(score),
		})
	}
	return rank(out, k), nil
}

func (ix *Index) queryVector(ctx context.Context, text string) ([]float32, error) {
	key := lang.Normalize(text)
	if ix.queries != nil {
		if v, ok := ix.queries.Get(key); ok {
			return v, nil
		}
	}
	start := time.Now()
	v, err := ix.embedder.Embed(ctx, text)
	if ix.metrics != nil {
		ix.metrics.RecordProviderDuration(ctx, ix.embedder.ModelID(), "embeddings", time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("symbolindex: embed query: %w", err)
	}
	if ix.queries != nil {
		ix.queries.Add(key, v)
	}
	return v, nil
}
