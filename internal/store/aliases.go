package store

import "strings"

// CountryAliases maps country names that the reference feed spells
// differently to a fixed Countries id.
type CountryAliases map[string]int64

// DefaultCountryAliases returns the legacy names seen on detail pages.
// The ids are positions in the reference feed's load order.
func DefaultCountryAliases() CountryAliases {
	return CountryAliases{
		"USA":         240,
		"South Korea": 211,
		"UK":          239,
		"Iran":        108,
	}
}

// Merge returns a copy of a with overrides applied on top.
func (a CountryAliases) Merge(overrides map[string]int64) CountryAliases {
	out := make(CountryAliases, len(a)+len(overrides))
	for name, id := range a {
		out[name] = id
	}
	for name, id := range overrides {
		out[strings.TrimSpace(name)] = id
	}
	return out
}

// Lookup returns the aliased id for name.
func (a CountryAliases) Lookup(name string) (int64, bool) {
	id, ok := a[name]
	return id, ok
}
