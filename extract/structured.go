package extract

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageKeys are the schema.org properties that carry images, in imageKey form.
var imageKeys = map[string]bool{
	"image":              true,
	"images":             true,
	"photo":              true,
	"photos":             true,
	"primaryimage":       true,
	"primaryimageofpage": true,
	"thumbnail":          true,
	"thumbnailurl":       true,
}

// StructuredStrategy reads images from JSON-LD blocks. A block that fails
// to parse is skipped; the others are still used.
type StructuredStrategy struct{}

func (StructuredStrategy) Source() Source { return SourceStructured }

func (s StructuredStrategy) Extract(page *Page) []PhotoCandidate {
	var raws []string
	for _, block := range jsonLDBlocks(page.Doc) {
		walkImages(block, &raws)
	}
	return collect(s.Source(), page.BaseURL, raws)
}

// jsonLDBlocks decodes every application/ld+json script in document order.
func jsonLDBlocks(doc *goquery.Document) []any {
	var blocks []any
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			slog.Debug("skipping malformed JSON-LD block", "index", i, "error", err)
			return
		}
		blocks = append(blocks, v)
	})
	return blocks
}

// walkImages collects image references from v, descending into nested
// objects and arrays such as @graph.
func walkImages(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			if imageKeys[imageKey(k)] {
				imageValue(t[k], out)
				continue
			}
			walkImages(t[k], out)
		}
	case []any:
		for _, item := range t {
			walkImages(item, out)
		}
	}
}

// imageKey folds case and drops separators, so primaryImage,
// primary-image and primary_image are the same property.
func imageKey(k string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(k))
}

// imageValue reads an image property: a URL string, an ImageObject, or a
// list of either.
func imageValue(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []any:
		for _, item := range t {
			imageValue(item, out)
		}
	case map[string]any:
		for _, key := range []string{"url", "contentUrl"} {
			if s, ok := t[key].(string); ok && s != "" {
				*out = append(*out, s)
			}
		}
		walkImages(t, out)
	}
}

// sortedKeys gives map traversal a stable order so candidate order, and
// with it the merged photo order, is reproducible.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
