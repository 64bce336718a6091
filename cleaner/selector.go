package cleaner

import (
	"bytes"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// SectionHTML returns the concatenated outer HTML of every node under root
// matching sel, and false when nothing matches.
func SectionHTML(root *html.Node, sel cascadia.Matcher) (string, bool) {
	if root == nil {
		return "", false
	}
	matches := cascadia.QueryAll(root, sel)
	if len(matches) == 0 {
		return "", false
	}

	var buf bytes.Buffer
	for _, node := range matches {
		if err := html.Render(&buf, node); err != nil {
			return "", false
		}
	}
	return buf.String(), true
}
