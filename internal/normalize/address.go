package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/referral-labels/internal/debug"
)

// ParsedAddress is a US street address split into label lines.
// State is "" or two uppercase letters; Zip is "", NNNNN or NNNNN-NNNN.
type ParsedAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
}

// IsParseError reports whether nothing usable was recovered. A whole-string
// fallback still fills address1, so this only holds for blank input or inputs
// where the street part was empty and no city or zip was found.
func (p ParsedAddress) IsParseError() bool {
	return p.Address1 == "" && p.City == "" && p.Zip == ""
}

// Country suffix
var reCountrySuffix = regexp.MustCompile(`(?i),\s*(united states|usa)\s*$`)

// Final segment must be exactly "ST 12345" or "ST 12345-6789"
var reStateZipStrict = regexp.MustCompile(`^([A-Z]{2})\s+(\d{5}(?:-\d{4})?)$`)

// State and zip anywhere in the string
var reStateZipLoose = regexp.MustCompile(`\b([A-Z]{2})\s+(\d{5}(?:-\d{4})?)\b`)

// Secondary unit designator. The marker must follow whitespace or a comma and
// word markers must end on a word boundary so "Unity Blvd" is not a unit.
var reSuite = regexp.MustCompile(`(?i)^(.*?)[\s,]+(?:(suite|unit|apt|ste|building|bldg)\b\.?|(#))\s*(.*)$`)

// addressMatcher tries one parsing strategy against the cleaned input and
// its comma segments.
type addressMatcher struct {
	name  string
	match func(cleaned string, segments []string) (ParsedAddress, bool)
}

// Tried in order; the first match wins.
var addressMatchers = []addressMatcher{
	{name: "trailing state/zip segment", match: matchTrailingStateZip},
	{name: "embedded state/zip", match: matchEmbeddedStateZip},
}

// ParseAddress splits a free-text US address into label components. It never
// fails: unrecognised input ends up whole in Address1.
func ParseAddress(raw string) ParsedAddress {
	return ParseAddressDebug(false, raw)
}

// ParseAddressDebug is ParseAddress with optional debug output
func ParseAddressDebug(localDebug bool, raw string) ParsedAddress {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	cleaned := cleanAddress(raw)
	debug.DebugOutput(localDebug, "Input: %q cleaned: %q", raw, cleaned)
	if cleaned == "" {
		return ParsedAddress{}
	}

	segments := splitSegments(cleaned)
	for _, m := range addressMatchers {
		if parsed, ok := m.match(cleaned, segments); ok {
			debug.DebugOutput(localDebug, "Matched %s: %+v", m.name, parsed)
			return parsed
		}
	}

	debug.DebugOutput(localDebug, "No state/zip found, using whole string as address1")
	return ParsedAddress{Address1: cleaned}
}

func cleanAddress(raw string) string {
	s := strings.TrimSpace(raw)
	s = reCountrySuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func splitSegments(s string) []string {
	parts := strings.Split(s, ",")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

func matchTrailingStateZip(_ string, segments []string) (ParsedAddress, bool) {
	n := len(segments)
	if n < 2 {
		return ParsedAddress{}, false
	}
	m := reStateZipStrict.FindStringSubmatch(segments[n-1])
	if m == nil {
		return ParsedAddress{}, false
	}

	address1, address2 := splitStreet(strings.Join(segments[:n-2], ", "))
	return ParsedAddress{
		Address1: address1,
		Address2: address2,
		City:     segments[n-2],
		State:    m[1],
		Zip:      m[2],
	}, true
}

func matchEmbeddedStateZip(cleaned string, segments []string) (ParsedAddress, bool) {
	if len(segments) < 2 {
		return ParsedAddress{}, false
	}
	all := reStateZipLoose.FindAllStringSubmatchIndex(cleaned, -1)
	if len(all) == 0 {
		return ParsedAddress{}, false
	}
	loc := all[len(all)-1]

	before := strings.TrimRight(cleaned[:loc[0]], ", \t")
	street, city := "", before
	if i := strings.LastIndex(before, ","); i >= 0 {
		street = before[:i]
		city = before[i+1:]
	}

	address1, address2 := splitStreet(street)
	return ParsedAddress{
		Address1: address1,
		Address2: address2,
		City:     strings.TrimSpace(city),
		State:    cleaned[loc[2]:loc[3]],
		Zip:      cleaned[loc[4]:loc[5]],
	}, true
}

// splitStreet separates the street line from a suite/unit designator. Only
// the first marker splits; anything after it stays in address2.
func splitStreet(street string) (address1, address2 string) {
	street = strings.Trim(street, ", \t")
	if street == "" {
		return "", ""
	}

	m := reSuite.FindStringSubmatch(street)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return street, ""
	}

	address1 = strings.Trim(m[1], ", \t")
	value := strings.Trim(m[4], ", \t")
	if m[3] == "#" {
		return address1, "#" + value
	}
	address2 = cases.Title(language.English).String(m[2])
	if value != "" {
		address2 += " " + value
	}
	return address1, address2
}

// FormatAddress renders a parsed address as one canonical line,
// "Address1, Address2, City, ST ZIP", skipping empty parts.
func FormatAddress(p ParsedAddress) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Address1, p.Address2, p.City} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if stateZip := strings.TrimSpace(p.State + " " + p.Zip); stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// CityLine renders "City, ST ZIP" for the last line of a label.
func CityLine(city, state, zip string) string {
	stateZip := strings.TrimSpace(state + " " + zip)
	switch {
	case city == "":
		return stateZip
	case stateZip == "":
		return city
	}
	return city + ", " + stateZip
}
