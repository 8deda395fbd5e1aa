package domain

import (
	"errors"
	"fmt"
	"regexp"
)

// prefixRe restricts prefixes to lowercase identifiers so count columns are
// valid CSV headers and SQL column names.
var prefixRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FacilityCategory is a named facility dataset and its output column prefix.
type FacilityCategory struct {
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

// CountColumn returns the enriched-table column for this category.
func (c FacilityCategory) CountColumn() string {
	return c.Prefix + "_count"
}

// FileName returns the expected dataset file name inside the facilities directory.
func (c FacilityCategory) FileName() string {
	return c.Name + ".csv"
}

// Catalogue is an immutable, ordered list of facility categories.
type Catalogue struct {
	categories []FacilityCategory
}

// NewCatalogue validates and copies the given categories. Names and prefixes
// must be non-empty and unique.
func NewCatalogue(categories []FacilityCategory) (Catalogue, error) {
	if len(categories) == 0 {
		return Catalogue{}, errors.New("catalogue: no categories")
	}
	names := make(map[string]struct{}, len(categories))
	prefixes := make(map[string]struct{}, len(categories))
	for i, c := range categories {
		if c.Name == "" {
			return Catalogue{}, fmt.Errorf("catalogue: category %d has an empty name", i)
		}
		if !prefixRe.MatchString(c.Prefix) {
			return Catalogue{}, fmt.Errorf("catalogue: category %q has invalid prefix %q", c.Name, c.Prefix)
		}
		if _, dup := names[c.Name]; dup {
			return Catalogue{}, fmt.Errorf("catalogue: duplicate category name %q", c.Name)
		}
		if _, dup := prefixes[c.Prefix]; dup {
			return Catalogue{}, fmt.Errorf("catalogue: duplicate prefix %q", c.Prefix)
		}
		names[c.Name] = struct{}{}
		prefixes[c.Prefix] = struct{}{}
	}
	return Catalogue{categories: append([]FacilityCategory(nil), categories...)}, nil
}

// MustCatalogue is NewCatalogue for static tables; it panics on invalid input.
func MustCatalogue(categories []FacilityCategory) Catalogue {
	c, err := NewCatalogue(categories)
	if err != nil {
		panic(err)
	}
	return c
}

// Categories returns a copy of the categories in catalogue order.
func (c Catalogue) Categories() []FacilityCategory {
	return append([]FacilityCategory(nil), c.categories...)
}

// Len returns the number of categories.
func (c Catalogue) Len() int { return len(c.categories) }

// CountColumns returns the count column names in catalogue order.
func (c Catalogue) CountColumns() []string {
	cols := make([]string, len(c.categories))
	for i, cat := range c.categories {
		cols[i] = cat.CountColumn()
	}
	return cols
}

// defaultCategories matches the facility exports in data/raw/facilities.
var defaultCategories = []FacilityCategory{
	{Name: "Transit_Stops_GTFS", Prefix: "transit"},
	{Name: "Healthcare_Facilities", Prefix: "health"},
	{Name: "Places", Prefix: "place"},
	{Name: "Colleges_SG_geocoded", Prefix: "college"},
	{Name: "Casinos_geocoded", Prefix: "casino"},
	{Name: "Elder_Care_Facilities_geocoded", Prefix: "elder"},
	{Name: "Gas_Stations_geocoded", Prefix: "gas"},
	{Name: "Library_geocoded", Prefix: "library"},
	{Name: "Prescription_Drug_Drop_Off_Sites_geocoded", Prefix: "rx_drop"},
	{Name: "Recreation_Centre_geocoded", Prefix: "rec"},
	{Name: "Recreation_Centre_geocoded2", Prefix: "rec2"},
	{Name: "Child_Care_Centers_geocoded", Prefix: "childcare"},
	{Name: "Cool_Zones_geocoded", Prefix: "coolzone"},
	{Name: "Business_Sites_geocoded", Prefix: "business"},
	{Name: "Affordable_Housing_Inventory_geocoded", Prefix: "afford_housing"},
}

// DefaultCatalogue returns the built-in facility catalogue.
func DefaultCatalogue() Catalogue {
	return MustCatalogue(defaultCategories)
}
