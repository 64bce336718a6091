package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// galleryKeyRe finds an array assigned under a photo or gallery-like key, in
// JSON ("photos": [) or script (images = [) form. Group 0 ends at the '['.
var galleryKeyRe = regexp.MustCompile(`(?i)["']?(photos|images|gallery|pictures|photourls|photo_urls|imageurls|image_urls|mediaitems|photoTouritems)["']?\s*[:=]\s*\[`)

var quotedRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)'`)

// GalleryStrategy reads image URLs out of gallery arrays embedded in inline scripts.
type GalleryStrategy struct{}

func (GalleryStrategy) Source() Source { return SourceGallery }

func (s GalleryStrategy) Extract(page *Page) []PhotoCandidate {
	var raws []string
	page.Doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if t, _ := sel.Attr("type"); strings.EqualFold(t, "application/ld+json") {
			return
		}
		raws = append(raws, galleryURLs(sel.Text())...)
	})
	return collect(s.Source(), page.BaseURL, raws)
}

// galleryURLs returns the quoted strings inside every gallery array in src.
// Arrays nested in an already scanned array are not scanned twice.
func galleryURLs(src string) []string {
	var out []string
	scannedUntil := 0
	for _, loc := range galleryKeyRe.FindAllStringIndex(src, -1) {
		open := loc[1] - 1
		if open < scannedUntil {
			continue
		}
		lit := arrayLiteral(src, open)
		scannedUntil = open + len(lit)
		for _, m := range quotedRe.FindAllStringSubmatch(lit, -1) {
			v := m[1]
			if v == "" {
				v = m[2]
			}
			if imageExtRe.MatchString(unescapeJS(v)) {
				out = append(out, v)
			}
		}
	}
	return out
}

// arrayLiteral returns src[open:] up to and including the bracket that
// closes the one at open. Brackets inside string literals are ignored. An
// unterminated array runs to the end of src.
func arrayLiteral(src string, open int) string {
	depth := 0
	var quote byte
	for i := open; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return src[open : i+1]
			}
		}
	}
	return src[open:]
}

// unescapeJS undoes the escaping a JSON or JS string literal applies to URLs.
func unescapeJS(s string) string {
	return escapeReplacer.Replace(s)
}
