package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Human-facing disaster types in the default catalog.
const (
	TypeWildfires    = "Wildfires"
	TypeSevereStorms = "Severe Storms"
	TypeVolcanoes    = "Volcanoes"
	TypeEarthquakes  = "Earthquakes"
)

// ErrUnknownCategoryType is returned when a selection names a type the catalog does not define.
var ErrUnknownCategoryType = errors.New("unknown category type")

// CategoryType maps a human-facing type to the feed keywords that identify it.
type CategoryType struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Catalog is an ordered set of category types. Keywords match as
// case-insensitive substrings of an event's category id or label, so feed
// variants like "severeStorms" and "severe-storms" both resolve.
type Catalog struct {
	types []CategoryType
}

// NewCatalog creates a catalog. Keywords are lowercased; empty ones are dropped.
func NewCatalog(types []CategoryType) Catalog {
	out := make([]CategoryType, 0, len(types))
	for _, t := range types {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		keywords := make([]string, 0, len(t.Keywords))
		for _, k := range t.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		out = append(out, CategoryType{Name: name, Keywords: keywords})
	}
	return Catalog{types: out}
}

// DefaultCatalog returns the four built-in disaster types.
func DefaultCatalog() Catalog {
	return NewCatalog([]CategoryType{
		{Name: TypeWildfires, Keywords: []string{"wildfires", "fire"}},
		{Name: TypeSevereStorms, Keywords: []string{"severeStorms", "storm"}},
		{Name: TypeVolcanoes, Keywords: []string{"volcanoes", "volcano"}},
		{Name: TypeEarthquakes, Keywords: []string{"earthquakes", "earthquake"}},
	})
}

// Types returns a copy of the catalog entries.
func (c Catalog) Types() []CategoryType {
	out := make([]CategoryType, len(c.types))
	copy(out, c.types)
	return out
}

// Names returns the type names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.types))
	for i, t := range c.types {
		names[i] = t.Name
	}
	return names
}

// ValidateTypes returns ErrUnknownCategoryType for the first selected name
// the catalog does not define.
func (c Catalog) ValidateTypes(selected []string) error {
	for _, name := range selected {
		if _, ok := c.lookup(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategoryType, name)
		}
	}
	return nil
}

// Classify returns the first type whose keywords match the event.
func (c Catalog) Classify(e DisasterEvent) (string, bool) {
	for _, t := range c.types {
		if t.matches(e) {
			return t.Name, true
		}
	}
	return "", false
}

// Filter returns, in input order, the events matching at least one selected
// type. An empty selection yields an empty result; unknown names match nothing.
func (c Catalog) Filter(events []DisasterEvent, selected []string) []DisasterEvent {
	out := make([]DisasterEvent, 0, len(events))
	if len(selected) == 0 {
		return out
	}

	types := make([]CategoryType, 0, len(selected))
	for _, name := range selected {
		if t, ok := c.lookup(name); ok {
			types = append(types, t)
		}
	}

	for _, e := range events {
		for _, t := range types {
			if t.matches(e) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (c Catalog) lookup(name string) (CategoryType, bool) {
	name = strings.TrimSpace(name)
	for _, t := range c.types {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return CategoryType{}, false
}

func (t CategoryType) matches(e DisasterEvent) bool {
	id := strings.ToLower(e.CategoryID)
	label := strings.ToLower(e.CategoryLabel)
	if id == "" && label == "" {
		return false
	}
	for _, k := range t.Keywords {
		if (id != "" && strings.Contains(id, k)) || (label != "" && strings.Contains(label, k)) {
			return true
		}
	}
	return false
}
