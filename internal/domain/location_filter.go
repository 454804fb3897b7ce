package domain

import "strings"

// AddressField names the address column a location criterion constrains.
type AddressField int

const (
	FieldCity AddressField = iota
	FieldStateProvince
	FieldCountry
)

func (f AddressField) String() string {
	switch f {
	case FieldCity:
		return "city"
	case FieldStateProvince:
		return "state"
	case FieldCountry:
		return "country"
	}
	return "unknown"
}

// Value returns the field of a, or "" and false when a is nil.
func (f AddressField) Value(a *Address) (string, bool) {
	if a == nil {
		return "", false
	}
	switch f {
	case FieldCity:
		return a.City, true
	case FieldStateProvince:
		return a.StateProvince, true
	case FieldCountry:
		return a.Country, true
	}
	return "", false
}

// positional order of the location arguments: city, state/province, country
var locationFields = [...]AddressField{FieldCity, FieldStateProvince, FieldCountry}

// LocationCriterion is one constrained slot. Value is already lower-cased.
type LocationCriterion struct {
	Field AddressField
	Value string
}

// LocationFilter is the conjunction of optional city/state/country matches.
// A nil slot means the field is unconstrained.
type LocationFilter struct {
	slots [len(locationFields)]*string
}

// NewLocationFilter binds positional arguments to city, state/province and
// country. Missing, empty or whitespace-only entries leave the field
// unconstrained; anything past the third entry is ignored.
func NewLocationFilter(location ...string) LocationFilter {
	var f LocationFilter
	for i := range f.slots {
		if i >= len(location) || strings.TrimSpace(location[i]) == "" {
			continue
		}
		v := strings.ToLower(location[i])
		f.slots[i] = &v
	}
	return f
}

// Criteria lists the constrained slots in positional order.
func (f LocationFilter) Criteria() []LocationCriterion {
	var out []LocationCriterion
	for i, v := range f.slots {
		if v != nil {
			out = append(out, LocationCriterion{Field: locationFields[i], Value: *v})
		}
	}
	return out
}

func (f LocationFilter) IsEmpty() bool { return len(f.Criteria()) == 0 }

// Matches evaluates the filter against a lodging's address in memory.
// A lodging without an address only matches an empty filter.
func (f LocationFilter) Matches(l Lodging) bool {
	addr := l.Address()
	for _, c := range f.Criteria() {
		v, ok := c.Field.Value(addr)
		if !ok || strings.ToLower(v) != c.Value {
			return false
		}
	}
	return true
}
