package domain

import (
	"regexp"
	"strings"
)

// AddressComponents is the raw six-field address of a person. Any field may be empty.
type AddressComponents struct {
	Street1 string `json:"street1,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Postal  string `json:"postal,omitempty"`
	Country string `json:"country,omitempty"`
}

// Parts returns the components in formatting order with the postal code normalized.
func (a AddressComponents) Parts() []string {
	return []string{a.Street1, a.Street2, a.City, a.Region, NormalizePostal(a.Postal), a.Country}
}

// Format joins the trimmed non-empty components with ", ".
func (a AddressComponents) Format() string {
	return FormatAddress(a.Parts())
}

// FormatAddress joins the trimmed non-empty parts with ", ".
func FormatAddress(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// postalFloatRe matches an integer postal code that was stored as a float,
// e.g. "12345.0" or "0123.00".
var postalFloatRe = regexp.MustCompile(`^(\d+)\.0+$`)

// NormalizePostal trims v and drops a zero fractional part left by spreadsheet
// exports. Leading zeros are preserved. "nan" (pandas' missing marker) becomes "".
func NormalizePostal(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	if m := postalFloatRe.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

var (
	// unitRe matches unit designators with their identifier, e.g. "Apt 4B",
	// "Suite 200", "Unit #12", "Fl. 3", "Room 101", "#5".
	unitRe = regexp.MustCompile(`(?i)(?:^|[\s,])(?:apt|apartment|unit|suite|ste|fl|floor|rm|room|bldg|building)\b\.?\s*#?\s*[\w-]+|\s*#\s*[\w-]+`)

	// roomSuffixRe matches Japanese room-number suffixes, e.g. "305号室".
	roomSuffixRe = regexp.MustCompile(`\s*\d+\s*号室`)

	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// Simplify drops Street2 and strips unit/apartment fragments from Street1.
// It is the last geocoding attempt before the default coordinate.
func (a AddressComponents) Simplify() AddressComponents {
	s := a
	s.Street2 = ""
	street := unitRe.ReplaceAllString(s.Street1, "")
	street = roomSuffixRe.ReplaceAllString(street, "")
	street = multiSpaceRe.ReplaceAllString(street, " ")
	s.Street1 = strings.Trim(street, ", ")
	return s
}
