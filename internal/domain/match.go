package domain

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// MatchEpsilon is the per-axis coordinate tolerance (degrees) under which two
// cabins are considered the same place.
const MatchEpsilon = 0.0001

// Near reports whether a and b differ by less than MatchEpsilon on both axes.
func Near(a, b orb.Point) bool {
	return math.Abs(a.Lat()-b.Lat()) < MatchEpsilon && math.Abs(a.Lon()-b.Lon()) < MatchEpsilon
}

// LatLon builds an orb point, which is ordered (lon, lat).
func LatLon(lat, lon float64) orb.Point { return orb.Point{lon, lat} }

// Point returns the cabin location.
func (c Cabin) Point() orb.Point { return LatLon(c.Latitude, c.Longitude) }

// Matches is the create-or-merge identity rule: nearby coordinates or the
// same name ignoring case.
func (c Cabin) Matches(p orb.Point, name string) bool {
	return Near(c.Point(), p) || strings.EqualFold(c.Name, name)
}
