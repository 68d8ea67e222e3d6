package symbol

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// catalogRecord is one pictogram in the on-disk catalog.
//
// Example:
//
//	[
//	  {"_id": 2517, "keywords": [{"keyword": "gato"}, {"keyword": "minino"}], "tags": ["animales"]},
//	  {"_id": 6632, "keywords": [{"keyword": "comer"}], "tags": ["acciones"], "path": "acciones/comer.png"}
//	]
type catalogRecord struct {
	ID       json.RawMessage  `json:"_id"`
	Keywords []catalogKeyword `json:"keywords"`
	Tags     []string         `json:"tags"`

	// Path overrides the asset path derived from the canonical keyword.
	Path string `json:"path"`
}

type catalogKeyword struct {
	Keyword string `json:"keyword"`
}

// AssetPath returns the conventional asset path for keyword: the keyword's
// first letter upper-cased as directory, then "<keyword>.png".
func AssetPath(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	r, _ := utf8.DecodeRuneInString(keyword)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r)) + "/" + keyword + ".png"
}

// LoadCatalog reads a JSON catalog from catalogPath and resolves asset paths
// against the directory assetsDir.
func LoadCatalog(catalogPath, assetsDir string) (*Library, error) {
	f, err := os.Open(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("symbol: open catalog %q: %w", catalogPath, err)
	}
	defer f.Close()

	lib, err := LoadCatalogFromReader(f, os.DirFS(assetsDir))
	if err != nil {
		return nil, fmt.Errorf("symbol: load catalog %q: %w", catalogPath, err)
	}
	return lib, nil
}

// LoadCatalogFromReader decodes a JSON catalog from r. An entry is kept only
// when its asset (explicit path, or the conventional path of its canonical
// keyword) exists in assets. Blank keywords and tags are dropped.
func LoadCatalogFromReader(r io.Reader, assets fs.FS) (*Library, error) {
	var records []catalogRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("symbol: decode catalog: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		e := Entry{ID: recordID(rec.ID)}
		for _, kw := range rec.Keywords {
			if k := strings.TrimSpace(kw.Keyword); k != "" {
				e.Keywords = append(e.Keywords, k)
			}
		}
		for _, t := range rec.Tags {
			if t = strings.TrimSpace(t); t != "" {
				e.Tags = append(e.Tags, t)
			}
		}

		switch {
		case rec.Path != "":
			e.AssetPath = rec.Path
		case len(e.Keywords) > 0:
			e.AssetPath = AssetPath(e.Keywords[0])
		default:
			continue
		}
		if !assetExists(assets, e.AssetPath) {
			continue
		}
		entries = append(entries, e)
	}

	lib := NewLibrary(entries, assets)
	if lib.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	return lib, nil
}

// recordID renders a catalog id that may be a JSON number or string.
func recordID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
