package models

// ExtractionResult is the canonical record produced from one listing page.
// It is never mutated after the merger returns it.
type ExtractionResult struct {
	// Photos is ordered and deduplicated: no two entries share a fingerprint.
	Photos []string `json:"photos"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Amenities      []Amenity      `json:"amenities"`
	Rooms          []Room         `json:"rooms"`
	Specifications Specifications `json:"specifications"`
	Location       Location       `json:"location"`

	Stats ExtractionStats `json:"extraction_stats"`

	// ProcessingTimeMs covers strategy fan-out, metadata parsing and merge.
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// ExtractionStats records how the photo list was assembled.
type ExtractionStats struct {
	// CountPerStrategy is the number of valid candidates each strategy produced.
	CountPerStrategy map[string]int `json:"count_per_strategy"`

	// TotalFound is the candidate count before deduplication.
	TotalFound int `json:"total_found"`

	// DuplicatesRemoved is TotalFound minus the number of photos kept.
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// Amenity is one feature offered by the property.
type Amenity struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Room is one sleeping space from the listing's room breakdown.
type Room struct {
	Name string   `json:"name"`
	Beds []string `json:"beds,omitempty"`
}

// Specifications are the headline capacity figures of the property.
type Specifications struct {
	PropertyType string  `json:"property_type,omitempty"`
	MaxGuests    int     `json:"max_guests,omitempty"`
	Bedrooms     int     `json:"bedrooms,omitempty"`
	Beds         int     `json:"beds,omitempty"`
	Bathrooms    float64 `json:"bathrooms,omitempty"`
}

// Location is where the property is, as precise as the page discloses.
type Location struct {
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`

	// Display is the human-readable location line as shown on the page.
	Display string `json:"display,omitempty"`
}
