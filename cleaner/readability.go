package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// maxExcerptLength caps the fallback description built from article text.
const maxExcerptLength = 500

// Excerpt runs the Mozilla Readability algorithm on rawHTML and returns a
// short plain-text summary of the main content. It returns "" when the page
// has no readable body; callers treat that as "no description".
func (c *Cleaner) Excerpt(rawHTML string, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return ""
	}

	if ex := c.Text(article.Excerpt); ex != "" {
		return ex
	}
	text := c.Text(article.TextContent)
	if len(text) > maxExcerptLength {
		cut := strings.LastIndex(text[:maxExcerptLength], " ")
		if cut <= 0 {
			cut = maxExcerptLength
		}
		text = text[:cut] + "…"
	}
	return text
}
