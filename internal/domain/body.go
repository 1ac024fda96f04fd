package domain

// Body names a celestial body tracked by the calculus.
type Body string

const (
	Sun       Body = "sun"
	Moon      Body = "moon"
	Mercury   Body = "mercury"
	Venus     Body = "venus"
	Mars      Body = "mars"
	Jupiter   Body = "jupiter"
	Saturn    Body = "saturn"
	Uranus    Body = "uranus"
	Neptune   Body = "neptune"
	Pluto     Body = "pluto"
	NorthNode Body = "north_node"
)

// canonicalBodies is the fixed emission order used by ephemeris adapters and
// JSON encoding.
var canonicalBodies = [...]Body{
	Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto, NorthNode,
}

// bodyWeights is initialized once and never mutated. Callers get copies.
var bodyWeights = map[Body]float64{
	Sun:       1.0, // luminaries
	Moon:      1.0,
	Mercury:   0.8, // personal
	Venus:     0.8,
	Mars:      0.7,
	Jupiter:   0.7, // social
	Saturn:    0.7,
	Uranus:    0.5, // transpersonal
	Neptune:   0.4,
	Pluto:     0.3,
	NorthNode: 0.6,
}

// Bodies returns the eleven tracked bodies in canonical order.
func Bodies() []Body {
	out := make([]Body, len(canonicalBodies))
	copy(out, canonicalBodies[:])
	return out
}

// IsKnown reports whether b is one of the tracked bodies.
func (b Body) IsKnown() bool {
	_, ok := bodyWeights[b]
	return ok
}

// Weights maps a body to its pressure weight in [0,1].
type Weights map[Body]float64

// DefaultWeights returns a copy of the static body weight table.
func DefaultWeights() Weights {
	w := make(Weights, len(bodyWeights))
	for b, v := range bodyWeights {
		w[b] = v
	}
	return w
}

// bodyIndex returns the canonical position of b, or -1 for unknown bodies.
func bodyIndex(b Body) int {
	for i, c := range canonicalBodies {
		if c == b {
			return i
		}
	}
	return -1
}
