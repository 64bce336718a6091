package engine

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// needsBrowser reports whether an HTTP-fetched page is a client-rendered
// shell that carries no listing content yet.
func needsBrowser(body []byte) bool {
	bodyText := extractVisibleText(body)
	lower := strings.ToLower(string(body))

	// Listing pages embed photo data in markup or scripts even when the
	// visible text is short.
	hasListingData := strings.Contains(lower, "<img") ||
		strings.Contains(lower, "application/ld+json") ||
		strings.Contains(lower, "muscache.com")

	if len(bodyText) < 200 && !hasListingData {
		return true
	}

	for _, root := range []string{`<div id="root"></div>`, `<div id="app"></div>`, `<div id="__next"></div>`} {
		if strings.Contains(lower, root) && !hasListingData {
			return true
		}
	}

	if reNoscript.MatchString(lower) && len(bodyText) < 500 {
		return true
	}

	scriptCount := strings.Count(lower, "<script")
	return scriptCount > 10 && len(bodyText) < 500 && !hasListingData
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style> content. Used for heuristic analysis only.
func extractVisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
