package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is used when a page carries no base of its own.
const DefaultBaseURL = "https://www.airbnb.com"

var imageExtRe = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|gif|avif)(\?.*)?$`)

// deniedFragments mark tracking pixels, UI chrome and placeholders.
var deniedFragments = []string{
	"tracking", "analytics", "beacon", "pixel", "1x1",
	"blank", "placeholder", "logo", "icon", "spinner",
	"loader", "loading",
}

var escapeReplacer = strings.NewReplacer(
	`&amp;`, `&`,
	`\u0026`, `&`,
	`\u002F`, `/`,
	`\u002f`, `/`,
	`\/`, `/`,
)

// NormalizeImageURL cleans an image reference as found in markup or script
// and makes it absolute. base resolves relative references; it falls back to
// DefaultBaseURL.
func NormalizeImageURL(raw, base string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = escapeReplacer.Replace(s)

	switch {
	case strings.HasPrefix(s, "//"):
		return "https:" + s
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s
	case strings.HasPrefix(s, "data:"), strings.HasPrefix(s, "blob:"), strings.HasPrefix(s, "javascript:"):
		return s
	}

	if base == "" {
		base = DefaultBaseURL
	}
	b, err := url.Parse(base)
	if err != nil {
		return s
	}
	if strings.HasPrefix(s, "/") {
		return b.Scheme + "://" + b.Host + s
	}
	ref, err := url.Parse(s)
	if err != nil || ref.Scheme != "" {
		return s
	}
	return b.ResolveReference(ref).String()
}

// IsValidImageURL reports whether u is an absolute http(s) URL pointing at an
// image file and not at a tracker or UI asset.
func IsValidImageURL(u string) bool {
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	if !imageExtRe.MatchString(strings.SplitN(u, "#", 2)[0]) {
		return false
	}
	for _, frag := range deniedFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return true
}

// Fingerprint is the identity used for deduplication: the URL lowercased,
// with query string and fragment removed.
func Fingerprint(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(u)
}
