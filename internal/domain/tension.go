package domain

import "math"

const hardAspectMultiplier = 1.5

// Tension aggregates aspects into a scalar. Each aspect contributes its
// definition weight (x1.5 for squares and oppositions) scaled by how close it
// is to exact: weight * (1 - orb/maxOrb). An empty slice yields 0.
func Tension(aspects []Aspect) float64 {
	var t float64
	for _, a := range aspects {
		d, ok := DefinitionFor(a.Kind)
		if !ok || d.MaxOrb <= 0 {
			continue
		}
		w := d.Weight
		if a.Kind.IsHard() {
			w *= hardAspectMultiplier
		}
		t += w * (1 - a.Orb/d.MaxOrb)
	}
	return t
}

// RPIVector is the two-dimensional resonance-pressure index.
type RPIVector struct {
	Pressure float64
	Tension  float64
}

// NatalVector returns the RPI vector of a birth moment, which carries no
// live tension.
func NatalVector(pressure float64) RPIVector {
	return RPIVector{Pressure: pressure}
}

// Magnitude is the Euclidean norm of the vector.
func (v RPIVector) Magnitude() float64 {
	return math.Hypot(v.Pressure, v.Tension)
}
