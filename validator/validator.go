// Package validator checks and canonicalizes listing URLs before any job is created.
package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/stayscan/config"
	"github.com/use-agent/stayscan/models"
)

// listingPathRe matches paths that identify exactly one listing.
var listingPathRe = regexp.MustCompile(`^/(rooms(/plus)?/\d+|luxury/listing/\d+|h/[\w-]+)$`)

// trackingParams are query keys that carry attribution only and never affect
// which listing is shown.
var trackingParams = map[string]bool{
	"fbclid":                     true,
	"gclid":                      true,
	"msclkid":                    true,
	"ref":                        true,
	"referrer":                   true,
	"source_impression_id":       true,
	"previous_page_section_name": true,
	"federated_search_id":        true,
	"search_mode":                true,
	"translate_ugc":              true,
	"c":                          true,
	"af":                         true,
}

// Validator is safe for concurrent use.
type Validator struct {
	host *regexp.Regexp
}

// New compiles hostPattern, the expression a listing host must match.
func New(hostPattern string) (*Validator, error) {
	re, err := regexp.Compile(hostPattern)
	if err != nil {
		return nil, fmt.Errorf("validator: compile host pattern: %w", err)
	}
	return &Validator{host: re}, nil
}

// Default returns a Validator for the built-in platform host pattern.
func Default() *Validator {
	return &Validator{host: regexp.MustCompile(config.DefaultHostPattern)}
}

// Validate checks raw and returns its canonical form. It never panics and has
// no side effects; validating a CleanedURL again yields no warnings.
func (v *Validator) Validate(raw string) models.ValidationOutcome {
	out := models.ValidationOutcome{Warnings: []string{}, Errors: []string{}}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		out.Errors = append(out.Errors, "URL is required")
		return out
	}
	if trimmed != raw {
		out.Warnings = append(out.Warnings, "surrounding whitespace removed")
	}

	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		out.Errors = append(out.Errors, "URL must be an absolute http or https URL")
		return out
	}
	switch u.Scheme {
	case "https":
	case "http":
		out.Warnings = append(out.Warnings, "scheme upgraded to https")
	default:
		out.Errors = append(out.Errors, fmt.Sprintf("unsupported scheme %q", u.Scheme))
		return out
	}

	if u.User != nil {
		out.Errors = append(out.Errors, "URL must not contain credentials")
	}

	host := u.Hostname()
	if lower := strings.ToLower(host); lower != host {
		out.Warnings = append(out.Warnings, "host lowercased")
		host = lower
	}
	if u.Port() != "" {
		out.Warnings = append(out.Warnings, "port removed")
	}
	if !v.host.MatchString(host) {
		out.Errors = append(out.Errors, fmt.Sprintf("host %q is not a supported listing site", host))
	}

	path := u.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimRight(path, "/")
		out.Warnings = append(out.Warnings, "trailing slash removed")
	}
	if !listingPathRe.MatchString(path) {
		out.Errors = append(out.Errors, fmt.Sprintf("path %q does not identify a single listing", path))
	}

	query, removed := stripTracking(u.RawQuery)
	for _, key := range removed {
		out.Warnings = append(out.Warnings, fmt.Sprintf("tracking parameter %q removed", key))
	}
	if u.ForceQuery && query == "" && len(removed) == 0 {
		out.Warnings = append(out.Warnings, "empty query removed")
	}

	if u.Fragment != "" || strings.HasSuffix(trimmed, "#") {
		out.Warnings = append(out.Warnings, "fragment removed")
	}

	if len(out.Errors) > 0 {
		return out
	}

	cleaned := url.URL{Scheme: "https", Host: host, Path: path, RawQuery: query}
	out.IsValid = true
	out.CleanedURL = cleaned.String()
	return out
}

// stripTracking drops tracking pairs from a raw query string while keeping
// the remaining pairs byte-for-byte and in their original order.
func stripTracking(rawQuery string) (string, []string) {
	if rawQuery == "" {
		return "", nil
	}
	var kept []string
	var removed []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if isTracking(key) {
			removed = append(removed, key)
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&"), removed
}

func isTracking(key string) bool {
	k := strings.ToLower(key)
	return strings.HasPrefix(k, "utm_") || trackingParams[k]
}

// IsListingPath reports whether path names a single listing page. A
// trailing slash is tolerated.
func IsListingPath(path string) bool {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return listingPathRe.MatchString(path)
}
