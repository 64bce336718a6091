package extract

import (
	"strconv"
	"strings"

	"github.com/use-agent/stayscan/models"
)

// ldFields are listing details found in JSON-LD. For each field the first
// value met while walking the blocks wins.
type ldFields struct {
	name        string
	description string
	amenities   []string
	specs       models.Specifications
	location    models.Location
}

// collectLD walks decoded JSON-LD blocks for listing details. Names and
// descriptions are taken only from objects typed as a lodging.
func collectLD(blocks []any) ldFields {
	var f ldFields
	for _, b := range blocks {
		f.visit(b)
	}
	return f
}

func (f *ldFields) visit(v any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			f.visit(item)
		}
	case map[string]any:
		f.object(t)
		for _, k := range sortedKeys(t) {
			switch t[k].(type) {
			case map[string]any, []any:
				f.visit(t[k])
			}
		}
	}
}

func (f *ldFields) object(obj map[string]any) {
	typ := ldType(obj)
	if lodgingTypes[strings.ToLower(typ)] {
		if f.name == "" {
			f.name, _ = obj["name"].(string)
		}
		if f.description == "" {
			f.description, _ = obj["description"].(string)
		}
		if f.specs.PropertyType == "" && !genericLodging(typ) {
			f.specs.PropertyType = strings.ToLower(typ)
		}
	}

	if f.specs.Bedrooms == 0 {
		if n, ok := ldNumber(obj["numberOfBedrooms"]); ok {
			f.specs.Bedrooms = int(n)
		} else if n, ok := ldNumber(obj["numberOfRooms"]); ok {
			f.specs.Bedrooms = int(n)
		}
	}
	if f.specs.Bathrooms == 0 {
		if n, ok := ldNumber(obj["numberOfBathroomsTotal"]); ok {
			f.specs.Bathrooms = n
		}
	}
	if f.specs.Beds == 0 {
		if n, ok := ldNumber(obj["numberOfBeds"]); ok {
			f.specs.Beds = int(n)
		}
	}
	if f.specs.MaxGuests == 0 {
		if n, ok := ldNumber(obj["occupancy"]); ok {
			f.specs.MaxGuests = int(n)
		}
	}

	if addr, ok := obj["address"].(map[string]any); ok && f.location.City == "" {
		f.location.City, _ = addr["addressLocality"].(string)
		f.location.State, _ = addr["addressRegion"].(string)
		f.location.Country = ldName(addr["addressCountry"])
	}
	if f.location.Latitude == 0 && f.location.Longitude == 0 {
		geo := obj
		if g, ok := obj["geo"].(map[string]any); ok {
			geo = g
		}
		lat, okLat := ldNumber(geo["latitude"])
		lng, okLng := ldNumber(geo["longitude"])
		if okLat && okLng {
			f.location.Latitude, f.location.Longitude = lat, lng
		}
	}

	if feats, ok := obj["amenityFeature"].([]any); ok {
		for _, feat := range feats {
			fm, ok := feat.(map[string]any)
			if !ok {
				continue
			}
			if avail, ok := fm["value"].(bool); ok && !avail {
				continue
			}
			if name, _ := fm["name"].(string); name != "" {
				f.amenities = append(f.amenities, name)
			}
		}
	}
}

// genericLodging types say nothing about the kind of property.
func genericLodging(typ string) bool {
	switch strings.ToLower(typ) {
	case "vacationrental", "lodgingbusiness", "accommodation", "product":
		return true
	}
	return false
}

// ldType returns the first @type of obj.
func ldType(obj map[string]any) string {
	switch t := obj["@type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// ldName reads a Text-or-Thing value such as addressCountry.
func ldName(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["name"].(string)
		return s
	}
	return ""
}

// ldNumber reads a number given as a JSON number, a numeric string, or a
// QuantitativeValue object.
func ldNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case map[string]any:
		for _, key := range []string{"value", "maxValue"} {
			if n, ok := ldNumber(t[key]); ok {
				return n, true
			}
		}
	}
	return 0, false
}
