package domain

import "math"

const latitudeGainAmplitude = 0.15

// LatitudeGain returns the multiplicative gain for an observer at the given
// geographic latitude: 1.0 at the equator rising to 1.15 at either pole.
func LatitudeGain(latitude float64) float64 {
	c := math.Cos(latitude * math.Pi / 180)
	c2 := c * c
	return 1 + latitudeGainAmplitude*(1-c2*c2)
}
