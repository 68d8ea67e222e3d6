// Package symbol defines the pictogram catalog: immutable symbol entries and
// the [Library] that owns them.
//
// The library is loaded once at process start and is never mutated
// afterwards, so it may be shared across goroutines without locking. Callers
// refer to entries by asset path (a plain string); binary asset content is
// never read by this package beyond an existence check.
package symbol

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
)

// ErrEmptyCatalog is returned when a catalog yields no usable entries.
var ErrEmptyCatalog = errors.New("symbol: catalog contains no usable entries")

// Entry is a single pictogram record.
type Entry struct {
	// ID is the catalog identifier of the pictogram.
	ID string

	// Keywords are the synonyms naming this pictogram. The first keyword is
	// the canonical one.
	Keywords []string

	// Tags are the categories this pictogram belongs to.
	Tags []string

	// AssetPath is the path of the image relative to the asset store root.
	AssetPath string
}

// Keyword returns the canonical keyword, or "" when the entry has none.
func (e Entry) Keyword() string {
	if len(e.Keywords) == 0 {
		return ""
	}
	return e.Keywords[0]
}

// HasTag reports whether the entry carries tag exactly.
func (e Entry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// WordSymbol pairs a word with the asset path of its pictogram. Path is empty
// when the word has no symbol.
type WordSymbol struct {
	Word string `json:"word"`
	Path string `json:"symbol_path,omitempty"`
}

// Library is a read-only set of symbol entries. All methods are safe for
// concurrent use.
type Library struct {
	entries []Entry
	byPath  map[string]int
	assets  fs.FS
}

// NewLibrary builds a Library from entries. assets is the store the entries'
// asset paths are relative to; it may be nil when existence checks are not
// needed, in which case [Library.AssetExists] reports true for every path
// known to the library.
//
// Entries sharing an asset path are collapsed, keeping the first.
func NewLibrary(entries []Entry, assets fs.FS) *Library {
	l := &Library{
		entries: make([]Entry, 0, len(entries)),
		byPath:  make(map[string]int, len(entries)),
		assets:  assets,
	}
	for _, e := range entries {
		if e.AssetPath == "" {
			continue
		}
		if _, dup := l.byPath[e.AssetPath]; dup {
			continue
		}
		e.Keywords = slices.Clone(e.Keywords)
		e.Tags = slices.Clone(e.Tags)
		l.byPath[e.AssetPath] = len(l.entries)
		l.entries = append(l.entries, e)
	}
	return l
}

// Len returns the number of entries.
func (l *Library) Len() int { return len(l.entries) }

// Entries returns a copy of all entries in catalog order.
func (l *Library) Entries() []Entry {
	return slices.Clone(l.entries)
}

// Filter returns the entries for which keep returns true, in catalog order.
func (l *Library) Filter(keep func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// ByPath returns the entry whose asset path is path.
func (l *Library) ByPath(path string) (Entry, bool) {
	i, ok := l.byPath[path]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// WordForPath returns the canonical keyword of the entry at path, or "" when
// the path is unknown.
func (l *Library) WordForPath(path string) string {
	e, ok := l.ByPath(path)
	if !ok {
		return ""
	}
	return e.Keyword()
}

// Categories returns the sorted, de-duplicated tags of all entries that have
// at least one keyword.
func (l *Library) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range l.entries {
		if len(e.Keywords) == 0 {
			continue
		}
		for _, t := range e.Tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// AssetExists reports whether path is a library entry whose asset is present
// in the asset store.
func (l *Library) AssetExists(path string) bool {
	if _, ok := l.byPath[path]; !ok {
		return false
	}
	if l.assets == nil {
		return true
	}
	return assetExists(l.assets, path)
}

func assetExists(assets fs.FS, path string) bool {
	info, err := fs.Stat(assets, path)
	return err == nil && !info.IsDir()
}
