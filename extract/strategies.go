package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StaticStrategy reads plain <img src> values.
type StaticStrategy struct{}

func (StaticStrategy) Source() Source { return SourceStatic }

func (s StaticStrategy) Extract(page *Page) []PhotoCandidate {
	var raws []string
	page.Doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			raws = append(raws, src)
		}
	})
	return collect(s.Source(), page.BaseURL, raws)
}

// lazyAttrs hold the real image URL on lazily loaded elements.
var lazyAttrs = []string{"data-src", "data-lazy-src", "data-original", "data-lazy", "data-original-src"}

// lazySrcsetAttrs hold comma-separated candidate lists.
var lazySrcsetAttrs = []string{"srcset", "data-srcset"}

// LazyStrategy reads deferred-loading attributes and srcset lists.
type LazyStrategy struct{}

func (LazyStrategy) Source() Source { return SourceLazy }

func (s LazyStrategy) Extract(page *Page) []PhotoCandidate {
	var raws []string
	page.Doc.Find("img, source").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range lazyAttrs {
			if v, ok := sel.Attr(attr); ok && v != "" {
				raws = append(raws, v)
			}
		}
		for _, attr := range lazySrcsetAttrs {
			if v, ok := sel.Attr(attr); ok && v != "" {
				raws = append(raws, splitSrcset(v)...)
			}
		}
	})
	return collect(s.Source(), page.BaseURL, raws)
}

// splitSrcset returns the URLs of a srcset list, dropping width and density
// descriptors.
func splitSrcset(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}
