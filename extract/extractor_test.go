package extract

import (
	"strings"
	"testing"

	"github.com/use-agent/stayscan/cleaner"
)

func TestExtractorRunFixture(t *testing.T) {
	e := NewExtractor("", cleaner.NewCleaner())
	res, err := e.Run(&RawContent{URL: "https://www.airbnb.com/rooms/42", HTML: loadFixture(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"https://a0.muscache.com/im/pictures/hero.jpg?im_w=720",
		"https://a0.muscache.com/im/pictures/kitchen.jpg?im_w=720",
		"https://a0.muscache.com/im/pictures/bath.webp?im_w=480",
		"https://a0.muscache.com/im/pictures/loft.jpeg?im_w=720",
		"https://a0.muscache.com/im/pictures/deck.jpg",
	}
	if strings.Join(res.Photos, "\n") != strings.Join(want, "\n") {
		t.Errorf("Photos =\n%s\nwant\n%s", strings.Join(res.Photos, "\n"), strings.Join(want, "\n"))
	}

	counts := map[string]int{"static": 1, "lazy": 3, "gallery": 2, "structured": 2}
	for k, v := range counts {
		if res.Stats.CountPerStrategy[k] != v {
			t.Errorf("CountPerStrategy[%s] = %d, want %d", k, res.Stats.CountPerStrategy[k], v)
		}
	}
	if res.Stats.TotalFound != 8 || res.Stats.DuplicatesRemoved != 3 {
		t.Errorf("Stats = %+v, want TotalFound 8, DuplicatesRemoved 3", res.Stats)
	}
	if res.Title != "Treehouse Hideaway" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.ProcessingTimeMs < 0 {
		t.Errorf("ProcessingTimeMs = %d", res.ProcessingTimeMs)
	}
}

func TestExtractorStaticAndStructuredDuplicate(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{"image":"a.jpg?w=200"}</script></head>
		<body><img src=a.jpg></body></html>`
	res, err := NewExtractor("", cleaner.NewCleaner()).Run(&RawContent{URL: "https://www.airbnb.com/rooms/1", HTML: html})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Photos) != 1 {
		t.Fatalf("Photos = %v, want exactly one", res.Photos)
	}
	if res.Photos[0] != "https://www.airbnb.com/a.jpg" {
		t.Errorf("Photos[0] = %q, want the static occurrence", res.Photos[0])
	}
	if res.Stats.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", res.Stats.DuplicatesRemoved)
	}
}

func TestExtractorEmptyPage(t *testing.T) {
	res, err := NewExtractor("", cleaner.NewCleaner()).Run(&RawContent{URL: "https://www.airbnb.com/rooms/1", HTML: "<html><body></body></html>"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Photos) != 0 {
		t.Errorf("Photos = %v, want none", res.Photos)
	}
}

type panickyStrategy struct{}

func (panickyStrategy) Source() Source              { return SourceGallery }
func (panickyStrategy) Extract(*Page) []PhotoCandidate { panic("boom") }

func TestExtractorIsolatesPanickingStrategy(t *testing.T) {
	e := &Extractor{
		strategies: []Strategy{StaticStrategy{}, panickyStrategy{}},
		metadata:   NewMetadataParser(cleaner.NewCleaner()),
		baseURL:    DefaultBaseURL,
	}
	res, err := e.Run(&RawContent{URL: "https://www.airbnb.com/rooms/1", HTML: `<img src="https://x.com/a.jpg">`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Photos) != 1 || res.Photos[0] != "https://x.com/a.jpg" {
		t.Errorf("Photos = %v, want the static photo", res.Photos)
	}
	if res.Stats.CountPerStrategy["gallery"] != 0 {
		t.Errorf("gallery count = %d, want 0", res.Stats.CountPerStrategy["gallery"])
	}
}
