package domain

import (
	"net/url"
	"path"
	"strings"
)

// Category classifies an asset by the rule that discovered it
type Category string

// Asset categories
const (
	CategoryCSS   Category = "css"
	CategoryJS    Category = "js"
	CategoryImage Category = "image"
	CategoryFont  Category = "font"
	CategoryVideo Category = "video"
	CategoryAudio Category = "audio"
	CategoryHTML  Category = "html"
)

// AssetCategories lists the categories that get their own directory, in discovery priority order
var AssetCategories = []Category{
	CategoryCSS,
	CategoryFont,
	CategoryJS,
	CategoryImage,
	CategoryVideo,
	CategoryAudio,
}

// IsValid returns true if c is a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryCSS, CategoryJS, CategoryImage, CategoryFont, CategoryVideo, CategoryAudio, CategoryHTML:
		return true
	}
	return false
}

// DefaultExtension returns the extension used when a URL has no usable file name
func (c Category) DefaultExtension() string {
	switch c {
	case CategoryCSS:
		return ".css"
	case CategoryJS:
		return ".js"
	case CategoryHTML:
		return ".html"
	default:
		return ""
	}
}

// AssetReference is an absolute asset URL tagged with its category
type AssetReference struct {
	URL      string
	Category Category
}

// AssetReferenceSet is an ordered list of references, unique by URL
type AssetReferenceSet struct {
	refs  []AssetReference
	index map[string]int
}

// NewAssetReferenceSet creates an empty set
func NewAssetReferenceSet() *AssetReferenceSet {
	return &AssetReferenceSet{index: make(map[string]int)}
}

// Add appends ref unless its URL is already present.
// Returns false if the URL was already recorded.
func (s *AssetReferenceSet) Add(ref AssetReference) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[ref.URL]; ok {
		return false
	}
	s.index[ref.URL] = len(s.refs)
	s.refs = append(s.refs, ref)
	return true
}

// Contains returns true if rawURL was recorded
func (s *AssetReferenceSet) Contains(rawURL string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[rawURL]
	return ok
}

// Get returns the reference recorded for rawURL
func (s *AssetReferenceSet) Get(rawURL string) (AssetReference, bool) {
	if s == nil {
		return AssetReference{}, false
	}
	i, ok := s.index[rawURL]
	if !ok {
		return AssetReference{}, false
	}
	return s.refs[i], true
}

// Len returns the number of references
func (s *AssetReferenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.refs)
}

// References returns a copy of the references in discovery order
func (s *AssetReferenceSet) References() []AssetReference {
	if s == nil {
		return nil
	}
	out := make([]AssetReference, len(s.refs))
	copy(out, s.refs)
	return out
}

// CountByCategory returns how many references fall in each category
func (s *AssetReferenceSet) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	if s == nil {
		return counts
	}
	for _, ref := range s.refs {
		counts[ref.Category]++
	}
	return counts
}

// CleanFilename returns the last path segment of rawURL without query or fragment.
// Returns "" when the URL has no usable segment (e.g. "https://x.com/").
func CleanFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Fall back to string slicing for unparsable input
		s := rawURL
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		return sanitizeSegment(s[strings.LastIndex(s, "/")+1:])
	}

	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	return sanitizeSegment(path.Base(p))
}

func sanitizeSegment(name string) string {
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	// Path separators from decoded segments must not escape the category dir
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(name)
	return name
}

// HasExtension reports whether the URL path ends in one of exts (case-insensitive)
func HasExtension(rawURL string, exts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
