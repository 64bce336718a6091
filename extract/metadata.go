package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/stayscan/cleaner"
	"github.com/use-agent/stayscan/models"
)

// Metadata is everything on a listing page except its photos.
type Metadata struct {
	Title          string
	Description    string
	Amenities      []models.Amenity
	Rooms          []models.Room
	Specifications models.Specifications
	Location       models.Location
}

var (
	titleSel       = cascadia.MustCompile(`[data-section-id^="TITLE"] h1, h1`)
	descriptionSel = cascadia.MustCompile(`[data-section-id^="DESCRIPTION"]`)
	amenitySel     = cascadia.MustCompile(`[data-section-id^="AMENITIES"] [id$="-row-title"], [data-testid="amenity-row"]`)
	sleepingSel    = cascadia.MustCompile(`[data-section-id^="SLEEPING_ARRANGEMENT"] [data-testid="sleeping-arrangement-card"]`)
	overviewSel    = cascadia.MustCompile(`[data-section-id^="OVERVIEW"] h1, [data-section-id^="OVERVIEW"] h2, [data-section-id^="OVERVIEW"] li`)
)

var (
	guestsRe    = regexp.MustCompile(`(?i)(\d+)\s+guests?\b`)
	bedroomsRe  = regexp.MustCompile(`(?i)(\d+)\s+bedrooms?\b`)
	bedsRe      = regexp.MustCompile(`(?i)(\d+)\s+beds?\b`)
	bathsRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+(?:shared\s+|private\s+)?(?:baths?|bathrooms?)\b`)
	halfBathRe  = regexp.MustCompile(`(?i)\bhalf-bath\b`)
	studioRe    = regexp.MustCompile(`(?i)\bstudio\b`)
	placeLineRe = regexp.MustCompile(`(?i)^(?:entire\s+|private room in\s+|shared room in\s+|room in\s+)?(.+?)\s+in\s+(.+)$`)
)

// lodgingTypes are schema.org types describing the property itself.
var lodgingTypes = map[string]bool{
	"vacationrental": true, "lodgingbusiness": true, "accommodation": true,
	"house": true, "apartment": true, "singlefamilyresidence": true,
	"suite": true, "room": true, "hotelroom": true, "product": true,
	"bedandbreakfast": true, "hotel": true, "resort": true,
}

// amenityCategories maps keywords to the category an amenity is filed under.
// The first matching keyword wins.
var amenityCategories = []struct {
	keyword  string
	category string
}{
	{"wifi", "Internet and office"},
	{"workspace", "Internet and office"},
	{"ethernet", "Internet and office"},
	{"tv", "Entertainment"},
	{"game", "Entertainment"},
	{"kitchen", "Kitchen and dining"},
	{"microwave", "Kitchen and dining"},
	{"refrigerator", "Kitchen and dining"},
	{"oven", "Kitchen and dining"},
	{"stove", "Kitchen and dining"},
	{"dishwasher", "Kitchen and dining"},
	{"coffee", "Kitchen and dining"},
	{"dishes", "Kitchen and dining"},
	{"parking", "Parking and facilities"},
	{"garage", "Parking and facilities"},
	{"ev charger", "Parking and facilities"},
	{"pool", "Parking and facilities"},
	{"hot tub", "Parking and facilities"},
	{"gym", "Parking and facilities"},
	{"elevator", "Parking and facilities"},
	{"hair dryer", "Bathroom"},
	{"washer", "Bedroom and laundry"},
	{"dryer", "Bedroom and laundry"},
	{"hangers", "Bedroom and laundry"},
	{"iron", "Bedroom and laundry"},
	{"bed linens", "Bedroom and laundry"},
	{"essentials", "Bedroom and laundry"},
	{"heating", "Heating and cooling"},
	{"air conditioning", "Heating and cooling"},
	{"fireplace", "Heating and cooling"},
	{"fan", "Heating and cooling"},
	{"smoke alarm", "Home safety"},
	{"carbon monoxide", "Home safety"},
	{"fire extinguisher", "Home safety"},
	{"first aid", "Home safety"},
	{"shampoo", "Bathroom"},
	{"hot water", "Bathroom"},
	{"bathtub", "Bathroom"},
	{"patio", "Outdoor"},
	{"balcony", "Outdoor"},
	{"backyard", "Outdoor"},
	{"bbq", "Outdoor"},
	{"grill", "Outdoor"},
	{"pets", "Services"},
	{"self check-in", "Services"},
	{"luggage", "Services"},
	{"crib", "Family"},
	{"high chair", "Family"},
}

// MetadataParser derives listing details from JSON-LD, meta tags and the
// rendered sections of the page. It is safe for concurrent use.
type MetadataParser struct {
	cleaner *cleaner.Cleaner
}

// NewMetadataParser creates a MetadataParser.
func NewMetadataParser(c *cleaner.Cleaner) *MetadataParser {
	return &MetadataParser{cleaner: c}
}

// Parse never fails; fields the page does not disclose stay zero.
func (p *MetadataParser) Parse(page *Page) Metadata {
	ld := collectLD(jsonLDBlocks(page.Doc))
	meta := metaTags(page.Doc)
	overview := p.texts(page.Doc.FindMatcher(overviewSel))

	var m Metadata
	m.Title = p.title(page, ld, meta)
	m.Description = p.description(page, ld, meta)
	m.Amenities = p.amenities(page.Doc, ld)
	m.Rooms = p.rooms(page.Doc)

	summary := append([]string{}, overview...)
	if og := meta["og:title"]; strings.Contains(og, " · ") {
		summary = append(summary, strings.Split(og, " · ")...)
	}

	m.Specifications = ld.specs
	fillSpecs(&m.Specifications, summary)

	m.Location = ld.location
	fillLocation(&m.Location, &m.Specifications, meta, summary)
	return m
}

func (p *MetadataParser) title(page *Page, ld ldFields, meta map[string]string) string {
	if t := p.cleaner.Text(ld.name); t != "" {
		return t
	}
	if t := p.cleaner.Text(page.Doc.FindMatcher(titleSel).First().Text()); t != "" {
		return t
	}
	if og := meta["og:title"]; og != "" {
		return p.cleaner.Text(strings.Split(og, " · ")[0])
	}
	t := p.cleaner.Text(page.Doc.Find("title").First().Text())
	if i := strings.LastIndex(t, " - Airbnb"); i > 0 {
		t = t[:i]
	}
	return t
}

func (p *MetadataParser) description(page *Page, ld ldFields, meta map[string]string) string {
	if frag, ok := cleaner.SectionHTML(page.Doc.Nodes[0], descriptionSel); ok {
		if md := p.cleaner.Markdown(frag, hostOf(page)); md != "" {
			return md
		}
	}
	for _, candidate := range []string{ld.description, meta["og:description"], meta["description"]} {
		if d := p.cleaner.Text(candidate); d != "" {
			return d
		}
	}
	return p.cleaner.Excerpt(page.Raw.HTML, pageURL(page))
}

func (p *MetadataParser) amenities(doc *goquery.Document, ld ldFields) []models.Amenity {
	names := p.texts(doc.FindMatcher(amenitySel))
	names = append(names, ld.amenities...)

	out := []models.Amenity{}
	seen := make(map[string]bool)
	for _, raw := range names {
		name := p.cleaner.Text(raw)
		key := strings.ToLower(name)
		if name == "" || strings.HasPrefix(key, "unavailable:") || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.Amenity{Name: name, Category: amenityCategory(key)})
	}
	return out
}

func (p *MetadataParser) rooms(doc *goquery.Document) []models.Room {
	out := []models.Room{}
	doc.FindMatcher(sleepingSel).Each(func(_ int, card *goquery.Selection) {
		parts := p.leafTexts(card)
		if len(parts) == 0 {
			return
		}
		room := models.Room{Name: parts[0]}
		for _, detail := range parts[1:] {
			for _, bed := range strings.Split(detail, ",") {
				if b := strings.TrimSpace(bed); b != "" {
					room.Beds = append(room.Beds, b)
				}
			}
		}
		out = append(out, room)
	})
	return out
}

// texts returns the cleaned, non-empty text of each selected element.
func (p *MetadataParser) texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := p.cleaner.Text(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// leafTexts returns the text of every descendant that has no element
// children, falling back to the element's own text.
func (p *MetadataParser) leafTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		if t := p.cleaner.Text(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	if len(out) == 0 {
		if t := p.cleaner.Text(sel.Text()); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func amenityCategory(lowerName string) string {
	for _, c := range amenityCategories {
		if strings.Contains(lowerName, c.keyword) {
			return c.category
		}
	}
	return ""
}

// fillSpecs sets any zero capacity figure from summary lines such as
// "4 guests · 2 bedrooms · 3 beds · 1.5 baths".
func fillSpecs(s *models.Specifications, lines []string) {
	text := strings.Join(lines, " · ")
	if s.MaxGuests == 0 {
		s.MaxGuests = firstInt(guestsRe, text)
	}
	if s.Bedrooms == 0 && !studioRe.MatchString(text) {
		s.Bedrooms = firstInt(bedroomsRe, text)
	}
	if s.Beds == 0 {
		s.Beds = firstInt(bedsRe, text)
	}
	if s.Bathrooms == 0 {
		if m := bathsRe.FindStringSubmatch(text); m != nil {
			s.Bathrooms, _ = strconv.ParseFloat(m[1], 64)
		} else if halfBathRe.MatchString(text) {
			s.Bathrooms = 0.5
		}
	}
}

// fillLocation completes the location from meta tags and a summary line
// such as "Entire cabin in Asheville, North Carolina, United States".
// The property type is taken from the same line when still unknown.
func fillLocation(loc *models.Location, specs *models.Specifications, meta map[string]string, lines []string) {
	if loc.Latitude == 0 && loc.Longitude == 0 {
		for _, prefix := range []string{"place:location:", "airbedandbreakfast:location:"} {
			lat, okLat := parseFloat(meta[prefix+"latitude"])
			lng, okLng := parseFloat(meta[prefix+"longitude"])
			if okLat && okLng {
				loc.Latitude, loc.Longitude = lat, lng
				break
			}
		}
	}

	for _, line := range lines {
		m := placeLineRe.FindStringSubmatch(line)
		if m == nil || strings.ContainsAny(m[1], "0123456789★") {
			continue
		}
		if specs.PropertyType == "" {
			specs.PropertyType = strings.ToLower(strings.TrimSpace(m[1]))
		}
		if loc.Display == "" {
			loc.Display = strings.TrimSpace(m[2])
		}
		if loc.City == "" && loc.Country == "" {
			parts := splitPlace(m[2])
			switch len(parts) {
			case 1:
				loc.City = parts[0]
			case 2:
				loc.City, loc.Country = parts[0], parts[1]
			default:
				loc.City, loc.State, loc.Country = parts[0], parts[1], parts[len(parts)-1]
			}
		}
		break
	}

	if loc.Display == "" {
		var parts []string
		for _, p := range []string{loc.City, loc.State, loc.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		loc.Display = strings.Join(parts, ", ")
	}
}

func splitPlace(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// metaTags maps lowercased meta property/name to content; the first
// occurrence wins.
func metaTags(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok {
			key, ok = s.Attr("name")
		}
		if !ok {
			return
		}
		key = strings.ToLower(strings.TrimSpace(key))
		content, _ := s.Attr("content")
		if _, exists := out[key]; !exists && content != "" {
			out[key] = content
		}
	})
	return out
}

func hostOf(page *Page) string {
	if u, err := url.Parse(pageURL(page)); err == nil && u.Host != "" {
		return u.Host
	}
	return ""
}

func pageURL(page *Page) string {
	if page.Raw.FinalURL != "" {
		return page.Raw.FinalURL
	}
	if page.Raw.URL != "" {
		return page.Raw.URL
	}
	return page.BaseURL
}

func firstInt(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
