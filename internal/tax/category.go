package tax

import (
	"sort"
	"strings"
)

// Category is the tax bucket a shipping destination falls into.
type Category string

const (
	CategoryLocal         Category = "LOCAL"
	CategoryInterstate    Category = "INTERSTATE"
	CategoryInternational Category = "INTERNATIONAL"
)

// Setting names under which each category's rate is stored.
const (
	SettingLocal         = "local_region_gst"
	SettingInterstate    = "interstate_gst"
	SettingInternational = "international_gst"
)

// Older deployments stored the home-state and interstate rates under these names.
var legacySettingNames = map[string]Category{
	"andhra_pradesh_gst": CategoryLocal,
	"igst_other_states":  CategoryInterstate,
}

// Categories lists every category in classification priority order.
func Categories() []Category {
	return []Category{CategoryInternational, CategoryLocal, CategoryInterstate}
}

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryLocal, CategoryInterstate, CategoryInternational:
		return true
	}
	return false
}

// Label is the customer-facing name of the tax line.
func (c Category) Label() string {
	switch c {
	case CategoryLocal:
		return "GST (local)"
	case CategoryInterstate:
		return "IGST"
	case CategoryInternational:
		return "International GST"
	}
	return ""
}

// SettingName returns the rate-table key for c.
func (c Category) SettingName() string {
	switch c {
	case CategoryLocal:
		return SettingLocal
	case CategoryInterstate:
		return SettingInterstate
	case CategoryInternational:
		return SettingInternational
	}
	return ""
}

// LegacySettingNames returns the pre-rename keys that stored c's rate.
func (c Category) LegacySettingNames() []string {
	var names []string
	for name, legacy := range legacySettingNames {
		if legacy == c {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CategoryForSetting maps a stored setting name, canonical or legacy, to its category.
func CategoryForSetting(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case SettingLocal:
		return CategoryLocal, true
	case SettingInterstate:
		return CategoryInterstate, true
	case SettingInternational:
		return CategoryInternational, true
	}
	c, ok := legacySettingNames[name]
	return c, ok
}

// IsLegacySetting reports whether name is one of the pre-rename setting keys.
func IsLegacySetting(name string) bool {
	_, ok := legacySettingNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
