// Package cleaner turns listing page fragments into clean text and Markdown.
package cleaner

import (
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/microcosm-cc/bluemonday"
)

// Cleaner holds the reusable, goroutine-safe Markdown converter and
// sanitization policy.
type Cleaner struct {
	mdConverter *converter.Converter
	strict      *bluemonday.Policy
}

// NewCleaner initialises the Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
		strict:      bluemonday.StrictPolicy(),
	}
}

// Text strips every tag from s, decodes entities and collapses whitespace.
func (c *Cleaner) Text(s string) string {
	if s == "" {
		return ""
	}
	stripped := c.strict.Sanitize(s)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

// Markdown converts a description fragment to Markdown, dropping
// interactive controls such as "Show more" buttons first.
func (c *Cleaner) Markdown(fragment string, domain string) string {
	fragment = FilterContent(fragment, nil, noiseSelectors)
	md, err := ToMarkdown(c.mdConverter, fragment, domain)
	if err != nil {
		return c.Text(fragment)
	}
	return strings.TrimSpace(md)
}
