package dialogue

import (
	"math/rand/v2"
	"slices"

	"github.com/MrWong99/pictalk/pkg/symbol"
)

// minDrillPool is the smallest pool a drill can be played from.
const minDrillPool = 3

// SampleDrill picks up to k entries with distinct asset paths from pool.
//
// Entries never shown in the current drill are preferred, then entries shown
// in earlier rounds but not in the last one, then entries of the last round.
// Each tier is shuffled with rng. The result has min(k, distinct paths in
// pool) entries, so a narrow pool repeats symbols instead of looping.
func SampleDrill(rng *rand.Rand, pool []symbol.Entry, k int, shown, last []string) []symbol.Entry {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	var fresh, older, recent []symbol.Entry
	seen := make(map[string]struct{}, len(pool))
	for _, e := range pool {
		if _, dup := seen[e.AssetPath]; dup {
			continue
		}
		seen[e.AssetPath] = struct{}{}
		switch {
		case slices.Contains(last, e.AssetPath):
			recent = append(recent, e)
		case slices.Contains(shown, e.AssetPath):
			older = append(older, e)
		default:
			fresh = append(fresh, e)
		}
	}

	out := make([]symbol.Entry, 0, min(k, len(seen)))
	for _, tier := range [][]symbol.Entry{fresh, older, recent} {
		rng.Shuffle(len(tier), func(i, j int) { tier[i], tier[j] = tier[j], tier[i] })
		for _, e := range tier {
			if len(out) == k {
				return out
			}
			out = append(out, e)
		}
	}
	return out
}

// drillPool returns the entries a drill may use. Candidates are tried in
// order: drillable entries of the category, any entries of the category,
// drillable entries of the whole library, then every entry with a keyword.
// The first candidate with at least minDrillPool entries wins; nil means the
// library cannot support a drill.
func drillPool(lib *symbol.Library, category string) []symbol.Entry {
	inCategory := func(e symbol.Entry) bool { return category == "" || e.HasTag(category) }
	candidates := []func(symbol.Entry) bool{
		func(e symbol.Entry) bool { return inCategory(e) && drillable(lib, e) },
		func(e symbol.Entry) bool { return inCategory(e) && e.Keyword() != "" },
		func(e symbol.Entry) bool { return drillable(lib, e) },
		func(e symbol.Entry) bool { return e.Keyword() != "" },
	}
	for _, keep := range candidates {
		if pool := lib.Filter(keep); len(pool) >= minDrillPool {
			return pool
		}
	}
	return nil
}

func assetPaths(items []symbol.Entry) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.AssetPath
	}
	return out
}
