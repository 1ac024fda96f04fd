package domain

import "math"

// AspectKind names an angular relationship between two bodies.
type AspectKind string

const (
	Conjunction AspectKind = "conjunction"
	Opposition  AspectKind = "opposition"
	Square      AspectKind = "square"
	Trine       AspectKind = "trine"
	Sextile     AspectKind = "sextile"
)

// AspectDefinition is one row of the static aspect table. Angle and MaxOrb
// are in degrees within [0, 180].
type AspectDefinition struct {
	Kind   AspectKind
	Angle  float64
	MaxOrb float64
	Weight float64
}

// aspectDefinitions is scanned in order; the first definition within orb wins.
var aspectDefinitions = [...]AspectDefinition{
	{Kind: Conjunction, Angle: 0, MaxOrb: 8, Weight: 1.0},
	{Kind: Opposition, Angle: 180, MaxOrb: 8, Weight: 0.8},
	{Kind: Square, Angle: 90, MaxOrb: 6, Weight: 0.7},
	{Kind: Trine, Angle: 120, MaxOrb: 6, Weight: 0.6},
	{Kind: Sextile, Angle: 60, MaxOrb: 4, Weight: 0.5},
}

// AspectDefinitions returns the aspect table in priority order.
func AspectDefinitions() []AspectDefinition {
	out := make([]AspectDefinition, len(aspectDefinitions))
	copy(out, aspectDefinitions[:])
	return out
}

// DefinitionFor returns the static definition of kind.
func DefinitionFor(kind AspectKind) (AspectDefinition, bool) {
	for _, d := range aspectDefinitions {
		if d.Kind == kind {
			return d, true
		}
	}
	return AspectDefinition{}, false
}

// IsHard reports whether the aspect kind counts as a hard aspect for tension.
func (k AspectKind) IsHard() bool {
	return k == Square || k == Opposition
}

// Aspect is a matched relation between two bodies.
type Aspect struct {
	Body1      Body
	Body2      Body
	Kind       AspectKind
	Separation float64 // shortest arc between the two longitudes, [0, 180]
	Orb        float64 // |Separation - exact angle|
	Applying   bool
}

// Definition returns the table row the aspect was matched against.
func (a Aspect) Definition() AspectDefinition {
	d, _ := DefinitionFor(a.Kind)
	return d
}

// Separation returns the shortest angular distance between two longitudes,
// in [0, 180].
func Separation(a, b float64) float64 {
	d := math.Abs(Normalize(a) - Normalize(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// FindAspects evaluates every pair (x in a, y in b) in iteration order and
// returns the aspects found. With suppressSelfPairs, pairs whose first body
// name sorts at or after the second are skipped, so comparing a set with
// itself evaluates each unordered pair exactly once and never a body with
// itself.
func FindAspects(a, b PositionSet, suppressSelfPairs bool) []Aspect {
	var out []Aspect
	for _, x := range a {
		for _, y := range b {
			if suppressSelfPairs && x.Body >= y.Body {
				continue
			}
			if asp, ok := matchAspect(x, y); ok {
				out = append(out, asp)
			}
		}
	}
	return out
}

// CandidatePairs counts the pairs FindAspects evaluates before orb filtering.
func CandidatePairs(a, b PositionSet, suppressSelfPairs bool) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if suppressSelfPairs && x.Body >= y.Body {
				continue
			}
			n++
		}
	}
	return n
}

func matchAspect(x, y Position) (Aspect, bool) {
	sep := Separation(x.Longitude, y.Longitude)
	for _, d := range aspectDefinitions {
		orb := math.Abs(sep - d.Angle)
		if orb > d.MaxOrb {
			continue
		}
		return Aspect{
			Body1:      x.Body,
			Body2:      y.Body,
			Kind:       d.Kind,
			Separation: sep,
			Orb:        orb,
			// Orb heuristic; no angular velocities are available.
			Applying: orb < d.MaxOrb/2,
		}, true
	}
	return Aspect{}, false
}
