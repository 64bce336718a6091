package cleaner

import (
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

func TestText(t *testing.T) {
	c := NewCleaner()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Cozy cabin", "Cozy cabin"},
		{"tags stripped", "<b>Cozy</b> <i>cabin</i>", "Cozy cabin"},
		{"script dropped", "Hi<script>alert(1)</script> there", "Hi there"},
		{"entities decoded", "Fish &amp; chips", "Fish & chips"},
		{"whitespace collapsed", "  a \n\t b  ", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarkdownDropsButtons(t *testing.T) {
	c := NewCleaner()
	got := c.Markdown(`<div><p>Sunny loft with <b>views</b>.</p><button>Show more</button></div>`, "www.airbnb.com")
	if !strings.Contains(got, "Sunny loft with **views**.") {
		t.Errorf("Markdown missing converted text: %q", got)
	}
	if strings.Contains(got, "Show more") {
		t.Errorf("Markdown kept button text: %q", got)
	}
}

func TestSectionHTML(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><div id="a"><p>one</p></div><div id="b">two</div></body></html>`))
	if err != nil {
		t.Fatal(err)
	}

	got, ok := SectionHTML(doc, cascadia.MustCompile("#a"))
	if !ok {
		t.Fatal("expected a match for #a")
	}
	if got != `<div id="a"><p>one</p></div>` {
		t.Errorf("SectionHTML = %q", got)
	}

	if _, ok := SectionHTML(doc, cascadia.MustCompile("#missing")); ok {
		t.Error("expected no match for #missing")
	}
	if _, ok := SectionHTML(nil, cascadia.MustCompile("p")); ok {
		t.Error("expected no match for nil root")
	}
}

func TestFilterContent(t *testing.T) {
	in := `<div><p>keep</p><button>drop</button></div>`
	got := FilterContent(in, nil, []string{"button"})
	if strings.Contains(got, "drop") || !strings.Contains(got, "keep") {
		t.Errorf("FilterContent exclude = %q", got)
	}

	got = FilterContent(in, []string{"p"}, nil)
	if got != "<p>keep</p>" {
		t.Errorf("FilterContent include = %q", got)
	}

	if got := FilterContent(in, nil, nil); got != in {
		t.Errorf("FilterContent no-op = %q", got)
	}
}
