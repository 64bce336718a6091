package models

// ValidationOutcome is the result of checking and canonicalizing a listing URL.
// Warnings never block; any error makes the URL invalid.
type ValidationOutcome struct {
	IsValid    bool     `json:"is_valid"`
	CleanedURL string   `json:"cleaned_url,omitempty"`
	Warnings   []string `json:"warnings"`
	Errors     []string `json:"errors"`
}
