package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the listing page to scrape. Presence, canonicalization and
	// host checks happen in the validator, not in binding, so that a bad
	// URL still gets a full ValidationOutcome back.
	URL string `json:"url"`
}

// ValidateRequest is the payload for POST /api/v1/validate.
type ValidateRequest struct {
	URL string `json:"url"`
}
