package config

import (
	"fmt"
	"os"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"gopkg.in/yaml.v3"
)

// Overlay holds the region table and category catalog used by the resolver
// and the category filter. Sections missing from the file keep their defaults.
type Overlay struct {
	Regions    domain.RegionTable
	Categories domain.Catalog
}

type overlayFile struct {
	Regions *struct {
		CountryVariants []string        `yaml:"country_variants"`
		Entries         []domain.Region `yaml:"entries"`
	} `yaml:"regions"`
	Categories []domain.CategoryType `yaml:"categories"`
}

// DefaultOverlay returns the built-in region table and category catalog.
func DefaultOverlay() Overlay {
	return Overlay{
		Regions:    domain.DefaultRegionTable(),
		Categories: domain.DefaultCatalog(),
	}
}

// LoadOverlay reads a YAML overlay file. An empty path returns DefaultOverlay.
//
//	regions:
//	  country_variants: [japan, jpn]
//	  entries:
//	    - {name: OKINAWA, lat: 26.2124, lon: 127.6809}
//	categories:
//	  - {name: Floods, keywords: [floods, flood]}
func LoadOverlay(path string) (Overlay, error) {
	overlay := DefaultOverlay()
	if path == "" {
		return overlay, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Overlay{}, fmt.Errorf("read CATALOG_FILE: %w", err)
	}
	return parseOverlay(data, overlay)
}

func parseOverlay(data []byte, overlay Overlay) (Overlay, error) {
	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Overlay{}, fmt.Errorf("parse CATALOG_FILE: %w", err)
	}

	if file.Regions != nil {
		if len(file.Regions.CountryVariants) == 0 {
			return Overlay{}, fmt.Errorf("parse CATALOG_FILE: regions.country_variants is required")
		}
		for _, r := range file.Regions.Entries {
			if r.Name == "" || r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
				return Overlay{}, fmt.Errorf("parse CATALOG_FILE: invalid region %+v", r)
			}
		}
		overlay.Regions = domain.NewRegionTable(file.Regions.CountryVariants, file.Regions.Entries)
	}
	if len(file.Categories) > 0 {
		overlay.Categories = domain.NewCatalog(file.Categories)
	}
	return overlay, nil
}
