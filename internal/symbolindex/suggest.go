package symbolindex

import (
	"cmp"
	"context"
	"slices"

	"github.com/MrWong99/pictalk/internal/lang"
)

// Suggest returns at most k entries ranked for text, best first, with unique
// asset paths. Dense similarity is used when available; an embedding failure
// on the query falls back to token overlap for this call.
func (ix *Index) Suggest(ctx context.Context, text string, k int) []Suggestion {
	if k <= 0 || len(lang.Tokenize(text)) == 0 {
		return nil
	}
	if d := ix.dense.Load(); d != nil && len(d.rows) > 0 {
		out, err := ix.suggestDense(ctx, d, text, k)
		if err == nil {
			ix.recordSuggest(ctx, "dense")
			return out
		}
		ix.log.Warn("symbolindex: dense suggest failed, using token overlap", "err", err)
		if ix.metrics != nil {
			ix.metrics.RecordProviderError(ctx, ix.embedder.ModelID(), "embeddings")
		}
	}
	ix.recordSuggest(ctx, "lexical")
	return ix.suggestLexical(text, k)
}

func (ix *Index) recordSuggest(ctx context.Context, mode string) {
	if ix.metrics != nil {
		ix.metrics.RecordSuggest(ctx, mode)
	}
}

// suggestLexical scores each entry as the share of the utterance's distinct
// normalized tokens found among the entry's keyword and tag tokens.
func (ix *Index) suggestLexical(text string, k int) []Suggestion {
	u := lang.NormalizedSet(text)
	if len(u) == 0 {
		return nil
	}
	var out []Suggestion
	for i, terms := range ix.terms {
		hits := 0
		for t := range u {
			if _, ok := terms[t]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, Suggestion{
			Path:    ix.entries[i].AssetPath,
			Keyword: ix.entries[i].Keyword(),
			Score:   float64(hits) / float64(len(u)),
		})
	}
	return rank(out, k)
}

// rank sorts by descending score then keyword, drops repeated paths and
// truncates to k.
func rank(in []Suggestion, k int) []Suggestion {
	slices.SortStableFunc(in, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Keyword, b.Keyword)
	})
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, dup := seen[s.Path]; dup {
			continue
		}
		seen[s.Path] = struct{}{}
		out = append(out, s)
		if len(out) == k {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
