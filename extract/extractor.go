package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/stayscan/cleaner"
	"github.com/use-agent/stayscan/models"
)

// Extractor runs every strategy and the metadata parser over one page and
// merges their output.
type Extractor struct {
	strategies []Strategy
	metadata   *MetadataParser
	baseURL    string
}

// NewExtractor creates an Extractor with the default strategy set.
// baseURL resolves root-relative image paths; empty means DefaultBaseURL.
func NewExtractor(baseURL string, c *cleaner.Cleaner) *Extractor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Extractor{
		strategies: DefaultStrategies(),
		metadata:   NewMetadataParser(c),
		baseURL:    baseURL,
	}
}

// Run extracts a canonical result from raw. Strategies run concurrently and
// independently; one that panics contributes nothing and the others are
// unaffected. The only error is a merge invariant violation or an
// unparseable document.
func (e *Extractor) Run(raw *RawContent) (*models.ExtractionResult, error) {
	start := time.Now()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse document: %w", err)
	}
	page := &Page{Raw: raw, Doc: doc, BaseURL: e.baseURL}

	results := make([][]PhotoCandidate, len(e.strategies))
	var meta Metadata
	var wg sync.WaitGroup

	for i, s := range e.strategies {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("extraction strategy panicked", "strategy", s.Source(), "url", raw.URL, "panic", r)
					results[i] = nil
				}
			}()
			results[i] = s.Extract(page)
		}(i, s)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("metadata parser panicked", "url", raw.URL, "panic", r)
			}
		}()
		meta = e.metadata.Parse(page)
	}()

	wg.Wait()

	// Join by strategy identity, not completion order.
	bySource := make(map[Source][]PhotoCandidate, len(e.strategies))
	for i, s := range e.strategies {
		bySource[s.Source()] = append(bySource[s.Source()], results[i]...)
	}

	result, err := Merge(bySource, meta)
	if err != nil {
		return nil, err
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	slog.Debug("extraction complete",
		"url", raw.URL,
		"photos", len(result.Photos),
		"total_found", result.Stats.TotalFound,
		"duplicates_removed", result.Stats.DuplicatesRemoved,
		"duration_ms", result.ProcessingTimeMs,
	)
	return result, nil
}
