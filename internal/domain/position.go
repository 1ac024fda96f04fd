package domain

import (
	"math"
	"sort"
)

// Normalize reduces an angle in degrees into [0, 360).
func Normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// -1e-15 + 360 rounds to 360 in float64.
	if d >= 360 {
		d = 0
	}
	return d
}

// Position is the ecliptic longitude of one body, in degrees.
type Position struct {
	Body      Body
	Longitude float64
}

// PositionSet is an ordered, read-only collection of body longitudes produced
// once per moment. Iteration order is the order the producer emitted.
type PositionSet []Position

// NewPositionSet builds a PositionSet in canonical body order. Bodies outside
// the tracked set are appended after the canonical ones, sorted by name.
func NewPositionSet(longitudes map[Body]float64) PositionSet {
	ps := make(PositionSet, 0, len(longitudes))
	for _, b := range canonicalBodies {
		if lon, ok := longitudes[b]; ok {
			ps = append(ps, Position{Body: b, Longitude: lon})
		}
	}

	var extra []Body
	for b := range longitudes {
		if bodyIndex(b) < 0 {
			extra = append(extra, b)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, b := range extra {
		ps = append(ps, Position{Body: b, Longitude: longitudes[b]})
	}
	return ps
}

// Longitude returns the longitude of b and whether it is present.
func (ps PositionSet) Longitude(b Body) (float64, bool) {
	for _, p := range ps {
		if p.Body == b {
			return p.Longitude, true
		}
	}
	return 0, false
}

// HouseCusps holds the twelve cusp longitudes (cusp of house i at index i-1)
// together with the Ascendant and Midheaven reported by the house system.
type HouseCusps struct {
	Cusps     [12]float64
	Ascendant float64
	Midheaven float64
}
