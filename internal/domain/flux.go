package domain

import "math"

// lobe is one Gaussian bump of the cosmic flux map.
type lobe struct {
	center    float64
	sigma     float64
	amplitude float64
}

const fluxBase = 1.0

var fluxLobes = [...]lobe{
	{center: 250, sigma: 20, amplitude: 0.25},
	{center: 310, sigma: 15, amplitude: 0.18},
	{center: 270, sigma: 18, amplitude: 0.15},
	{center: 80, sigma: 25, amplitude: -0.20},
	{center: 35, sigma: 25, amplitude: -0.10},
}

// Flux evaluates the cosmic flux map at the given ecliptic longitude.
// The longitude is normalized first, so Flux is periodic in 360°.
func Flux(longitude float64) float64 {
	x := Normalize(longitude)
	f := fluxBase
	for _, l := range fluxLobes {
		f += gaussian(x, l.center, l.sigma, l.amplitude)
	}
	return f
}

func gaussian(x, mu, sigma, amplitude float64) float64 {
	z := (x - mu) / sigma
	return amplitude * math.Exp(-0.5*z*z)
}
