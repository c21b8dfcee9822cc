package discovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

// Known extensions used by the classification rules
var (
	FontExtensions  = []string{".woff", ".woff2", ".ttf", ".otf"}
	VideoExtensions = []string{".mp4", ".webm", ".ogv", ".mov", ".m4v"}
	AudioExtensions = []string{".mp3", ".ogg", ".oga", ".wav", ".m4a", ".aac", ".flac"}
)

// candidate is a reference found in the document before it is recorded
type candidate struct {
	url      string
	category domain.Category
}

// Discover parses an HTML document and returns its asset references.
// It never fails: unparsable markup yields an empty or partial set.
func Discover(document string, base *url.URL) *domain.AssetReferenceSet {
	set := domain.NewAssetReferenceSet()

	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return set
	}
	doc := goquery.NewDocumentFromNode(root)

	base = effectiveBase(doc, base)

	// First pass: candidates in document order
	var found []candidate
	best := make(map[string]domain.Category)
	doc.Find("link, script, img, source, video, audio").Each(func(_ int, s *goquery.Selection) {
		c, ok := classify(s, base)
		if !ok {
			return
		}
		found = append(found, c)
		if cur, seen := best[c.url]; !seen || rank(c.category) < rank(cur) {
			best[c.url] = c.category
		}
	})

	// Second pass: first appearance fixes the order, priority fixes the category
	for _, c := range found {
		set.Add(domain.AssetReference{URL: c.url, Category: best[c.url]})
	}

	return set
}

// rank orders categories when one URL matches several rules; lower wins
func rank(c domain.Category) int {
	switch c {
	case domain.CategoryFont:
		return 0
	case domain.CategoryCSS:
		return 1
	case domain.CategoryJS:
		return 2
	case domain.CategoryImage:
		return 3
	case domain.CategoryVideo:
		return 4
	case domain.CategoryAudio:
		return 5
	default:
		return 6
	}
}

// classify applies the rule matching one element
func classify(s *goquery.Selection, base *url.URL) (candidate, bool) {
	switch goquery.NodeName(s) {
	case "link":
		href, ok := resolveAttr(s, "href", base)
		if !ok {
			return candidate{}, false
		}
		if isStylesheet(s) {
			// A stylesheet link pointing at a font file is a font
			if domain.HasExtension(href, FontExtensions) {
				return candidate{href, domain.CategoryFont}, true
			}
			return candidate{href, domain.CategoryCSS}, true
		}
		if isFontPreload(s) {
			return candidate{href, domain.CategoryFont}, true
		}
	case "script":
		if src, ok := resolveAttr(s, "src", base); ok {
			return candidate{src, domain.CategoryJS}, true
		}
	case "img":
		if src, ok := resolveAttr(s, "src", base); ok {
			return candidate{src, domain.CategoryImage}, true
		}
	case "source", "video", "audio":
		src, ok := resolveAttr(s, "src", base)
		if !ok {
			return candidate{}, false
		}
		if domain.HasExtension(src, VideoExtensions) {
			return candidate{src, domain.CategoryVideo}, true
		}
		if domain.HasExtension(src, AudioExtensions) {
			return candidate{src, domain.CategoryAudio}, true
		}
	}
	return candidate{}, false
}

// isStylesheet reports whether rel contains the "stylesheet" token
func isStylesheet(s *goquery.Selection) bool {
	return hasRelToken(s, "stylesheet")
}

// isFontPreload matches <link rel="preload" as="font">
func isFontPreload(s *goquery.Selection) bool {
	as, _ := s.Attr("as")
	return hasRelToken(s, "preload") && strings.EqualFold(strings.TrimSpace(as), "font")
}

func hasRelToken(s *goquery.Selection, token string) bool {
	rel, ok := s.Attr("rel")
	if !ok {
		return false
	}
	for _, f := range strings.Fields(rel) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// effectiveBase honours the first <base href> of the document
func effectiveBase(doc *goquery.Document, base *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return base
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	if base == nil {
		if ref.IsAbs() {
			return ref
		}
		return nil
	}
	return base.ResolveReference(ref)
}

// resolveAttr returns the absolute http(s) URL held by attr
func resolveAttr(s *goquery.Selection, attr string, base *url.URL) (string, bool) {
	raw, ok := s.Attr(attr)
	if !ok {
		return "", false
	}
	return Resolve(raw, base)
}

// Resolve turns a raw reference into an absolute http(s) URL without fragment.
// Empty, data:, javascript: and other non-http references are rejected.
func Resolve(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}

	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}
