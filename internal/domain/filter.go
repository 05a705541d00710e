package domain

import "strings"

// CabinFilter mirrors the map sidebar filters. Zero values disable a predicate.
type CabinFilter struct {
	Country         string
	Region          string
	MinCapacity     *int
	MaxCapacity     *int
	Amenities       []string
	RequiresBooking *bool
	IsFree          *bool
	Type            string
}

func (f CabinFilter) Empty() bool {
	return f.Country == "" && f.Region == "" && f.MinCapacity == nil && f.MaxCapacity == nil &&
		len(f.Amenities) == 0 && f.RequiresBooking == nil && f.IsFree == nil && f.Type == ""
}

func (f CabinFilter) Match(c Cabin) bool {
	if f.Country != "" && !strings.EqualFold(deref(c.Country), f.Country) {
		return false
	}
	if f.Region != "" && !strings.EqualFold(deref(c.Region), f.Region) {
		return false
	}
	capacity := 0
	if c.Capacity != nil {
		capacity = *c.Capacity
	}
	if f.MinCapacity != nil && capacity < *f.MinCapacity {
		return false
	}
	if f.MaxCapacity != nil && capacity > *f.MaxCapacity {
		return false
	}
	for _, a := range f.Amenities {
		if !c.HasAmenity(a) {
			return false
		}
	}
	if f.RequiresBooking != nil && c.RequiresBooking != *f.RequiresBooking {
		return false
	}
	if f.IsFree != nil && c.IsFree != *f.IsFree {
		return false
	}
	if f.Type != "" && deref(c.Type) != f.Type {
		return false
	}
	return true
}

// Apply returns the cabins matching f, preserving order.
func (f CabinFilter) Apply(in []Cabin) []Cabin {
	if f.Empty() {
		return in
	}
	out := make([]Cabin, 0, len(in))
	for _, c := range in {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
