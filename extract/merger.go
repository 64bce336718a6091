package extract

import (
	"errors"
	"fmt"

	"github.com/use-agent/stayscan/models"
)

// ErrMergeInvariant is returned when strategy output is inconsistent with
// its slot. It indicates a programming error, never bad page content.
var ErrMergeInvariant = errors.New("extract: merge invariant violated")

// Merge combines per-strategy candidates into one result. Candidates are
// concatenated in the fixed order static, lazy, gallery, structured and
// deduplicated by Fingerprint; the first occurrence wins. An empty candidate
// set is a valid result with no photos.
func Merge(candidates map[Source][]PhotoCandidate, meta Metadata) (*models.ExtractionResult, error) {
	known := make(map[Source]bool, len(sourceOrder))
	for _, src := range sourceOrder {
		known[src] = true
	}
	for src := range candidates {
		if !known[src] {
			return nil, fmt.Errorf("%w: unknown strategy %q", ErrMergeInvariant, src)
		}
	}

	stats := models.ExtractionStats{CountPerStrategy: make(map[string]int, len(sourceOrder))}
	photos := []string{}
	seen := make(map[string]struct{})

	for _, src := range sourceOrder {
		list := candidates[src]
		stats.CountPerStrategy[string(src)] = len(list)
		stats.TotalFound += len(list)
		for _, c := range list {
			if c.Source != src {
				return nil, fmt.Errorf("%w: candidate %q tagged %q in %q slot", ErrMergeInvariant, c.URL, c.Source, src)
			}
			fp := Fingerprint(c.URL)
			if _, dup := seen[fp]; dup {
				stats.DuplicatesRemoved++
				continue
			}
			seen[fp] = struct{}{}
			photos = append(photos, c.URL)
		}
	}

	if len(photos)+stats.DuplicatesRemoved != stats.TotalFound {
		return nil, fmt.Errorf("%w: %d photos and %d duplicates from %d candidates",
			ErrMergeInvariant, len(photos), stats.DuplicatesRemoved, stats.TotalFound)
	}

	return &models.ExtractionResult{
		Photos:         photos,
		Title:          meta.Title,
		Description:    meta.Description,
		Amenities:      nonNilAmenities(meta.Amenities),
		Rooms:          nonNilRooms(meta.Rooms),
		Specifications: meta.Specifications,
		Location:       meta.Location,
		Stats:          stats,
	}, nil
}

func nonNilAmenities(a []models.Amenity) []models.Amenity {
	if a == nil {
		return []models.Amenity{}
	}
	return a
}

func nonNilRooms(r []models.Room) []models.Room {
	if r == nil {
		return []models.Room{}
	}
	return r
}
