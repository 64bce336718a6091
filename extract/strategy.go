// Package extract turns a fetched listing page into a canonical ExtractionResult.
//
// Several independent strategies scan the same page for photo candidates;
// the merger combines their output in a fixed order and removes duplicates.
package extract

import (
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Source identifies the strategy that produced a candidate.
type Source string

const (
	SourceStatic     Source = "static"
	SourceLazy       Source = "lazy"
	SourceGallery    Source = "gallery"
	SourceStructured Source = "structured"
)

// sourceOrder is the merge order. It does not depend on which strategy
// finishes first.
var sourceOrder = []Source{SourceStatic, SourceLazy, SourceGallery, SourceStructured}

// PhotoCandidate is one normalized, valid image URL found by a strategy.
type PhotoCandidate struct {
	URL    string
	Source Source
}

// RawContent is the page retrieved by one attempt. It is never reused by a
// later attempt.
type RawContent struct {
	URL        string
	FinalURL   string
	HTML       string
	StatusCode int
	Engine     string
	FetchedAt  time.Time
}

// Page is what strategies read: the raw content plus its parsed DOM.
// The DOM is shared between strategies and must not be modified.
type Page struct {
	Raw *RawContent
	Doc *goquery.Document

	// BaseURL resolves relative image references.
	BaseURL string
}

// Strategy extracts photo candidates from a page. Implementations are pure
// and must not depend on each other.
type Strategy interface {
	Source() Source
	Extract(page *Page) []PhotoCandidate
}

// DefaultStrategies returns one instance of every strategy.
func DefaultStrategies() []Strategy {
	return []Strategy{
		StaticStrategy{},
		LazyStrategy{},
		GalleryStrategy{},
		StructuredStrategy{},
	}
}

// collect normalizes raw references and keeps the valid ones.
func collect(src Source, base string, raws []string) []PhotoCandidate {
	out := make([]PhotoCandidate, 0, len(raws))
	for _, r := range raws {
		u := NormalizeImageURL(r, base)
		if IsValidImageURL(u) {
			out = append(out, PhotoCandidate{URL: u, Source: src})
		}
	}
	return out
}
