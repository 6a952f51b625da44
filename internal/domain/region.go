package domain

import "strings"

// Region is a named administrative division with a representative centroid.
type Region struct {
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// DefaultCoordinate is returned when no resolution step succeeds. It is the
// Tokyo centroid and is always paired with IsValid=false.
var DefaultCoordinate = Coordinate{Lat: 35.6762, Lon: 139.6503, IsValid: false, Source: SourceDefault}

// RegionTable maps prefecture names to centroids for addresses in one country.
// Lookup checks entries in table order, so the first listed match wins.
type RegionTable struct {
	countryVariants []string
	regions         []Region
}

// NewRegionTable creates a table for the given country-name variants.
// Variants are matched as case-insensitive substrings of the Country component.
func NewRegionTable(countryVariants []string, regions []Region) RegionTable {
	variants := make([]string, 0, len(countryVariants))
	for _, v := range countryVariants {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			variants = append(variants, v)
		}
	}
	rs := make([]Region, len(regions))
	copy(rs, regions)
	return RegionTable{countryVariants: variants, regions: rs}
}

// DefaultRegionTable covers the ten Japanese prefectures with the most alumni.
func DefaultRegionTable() RegionTable {
	return NewRegionTable(
		[]string{"japan", "jpn", "日本"},
		[]Region{
			{Name: "OSAKA", Lat: 34.6937, Lon: 135.5023},
			{Name: "TOKYO", Lat: 35.6762, Lon: 139.6503},
			{Name: "KANAGAWA", Lat: 35.4478, Lon: 139.6425},
			{Name: "FUKUOKA", Lat: 33.5902, Lon: 130.4017},
			{Name: "KYOTO", Lat: 35.0116, Lon: 135.7681},
			{Name: "HOKKAIDO", Lat: 43.0642, Lon: 141.3469},
			{Name: "AICHI", Lat: 35.1802, Lon: 136.9066},
			{Name: "HYOGO", Lat: 34.6913, Lon: 135.1830},
			{Name: "SAITAMA", Lat: 35.8616, Lon: 139.6455},
			{Name: "CHIBA", Lat: 35.6073, Lon: 140.1063},
		},
	)
}

// Regions returns a copy of the table entries.
func (t RegionTable) Regions() []Region {
	out := make([]Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// Covers reports whether country names the table's country.
func (t RegionTable) Covers(country string) bool {
	c := strings.ToLower(strings.TrimSpace(country))
	if c == "" {
		return false
	}
	for _, v := range t.countryVariants {
		if strings.Contains(c, v) {
			return true
		}
	}
	return false
}

// Lookup returns the first region whose name occurs in address, ignoring case.
func (t RegionTable) Lookup(address string) (Region, bool) {
	a := strings.ToUpper(address)
	for _, r := range t.regions {
		if strings.Contains(a, strings.ToUpper(r.Name)) {
			return r, true
		}
	}
	return Region{}, false
}
