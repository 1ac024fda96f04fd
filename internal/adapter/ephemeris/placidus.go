package ephemeris

import (
	"fmt"
	"math"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
)

const (
	cuspMaxIterations = 50
	cuspTolerance     = 1e-9
)

// placidus computes Placidus cusps from the right ascension of the
// meridian, the true obliquity and the geographic latitude, all in radians.
// Cusps 11, 12, 2 and 3 trisect the diurnal and nocturnal semi-arcs; the
// remaining cusps are their opposites.
func placidus(ramc, eps, lat float64) (domain.HouseCusps, error) {
	if math.Abs(lat) >= math.Pi/2-eps {
		return domain.HouseCusps{}, fmt.Errorf("%w: %.4f", domain.ErrUnsupportedLatitude, lat*180/math.Pi)
	}

	sinR, cosR := math.Sincos(ramc)
	sinE, cosE := math.Sincos(eps)
	tanPhi := math.Tan(lat)

	mc := math.Atan2(sinR, cosR*cosE)
	asc := math.Atan2(cosR, -(sinR*cosE + tanPhi*sinE))

	// Above the horizon the cusp sits f of the diurnal semi-arc east of the
	// meridian; below it, f of the nocturnal semi-arc west of the lower meridian.
	type trisection struct {
		house    int
		fraction float64
		diurnal  bool
	}
	sections := []trisection{
		{11, 1.0 / 3, true},
		{12, 2.0 / 3, true},
		{2, 2.0 / 3, false},
		{3, 1.0 / 3, false},
	}

	var c domain.HouseCusps
	c.Cusps[0] = toDegrees(asc)
	c.Cusps[9] = toDegrees(mc)
	for _, s := range sections {
		lambda, err := trisect(ramc, sinE, cosE, tanPhi, s.fraction, s.diurnal)
		if err != nil {
			return domain.HouseCusps{}, fmt.Errorf("house %d: %w", s.house, err)
		}
		c.Cusps[s.house-1] = toDegrees(lambda)
	}
	for i := 0; i < 3; i++ {
		c.Cusps[i+6] = domain.Normalize(c.Cusps[i] + 180)
		c.Cusps[i+3] = domain.Normalize(c.Cusps[i+9] + 180)
	}
	c.Ascendant = c.Cusps[0]
	c.Midheaven = c.Cusps[9]
	return c, nil
}

// trisect iterates the ecliptic longitude whose right ascension lies the
// given fraction along its own semi-arc.
func trisect(ramc, sinE, cosE, tanPhi, fraction float64, diurnal bool) (float64, error) {
	ra := ramc + fraction*math.Pi/2
	if !diurnal {
		ra = ramc + math.Pi - fraction*math.Pi/2
	}
	lambda := math.Atan2(math.Sin(ra), math.Cos(ra)*cosE)

	for range cuspMaxIterations {
		decl := math.Asin(sinE * math.Sin(lambda))
		x := tanPhi * math.Tan(decl)
		if math.Abs(x) > 1 {
			return 0, fmt.Errorf("%w: circumpolar cusp point", domain.ErrUnsupportedLatitude)
		}
		ad := math.Asin(x)

		if diurnal {
			ra = ramc + fraction*(math.Pi/2+ad)
		} else {
			ra = ramc + math.Pi - fraction*(math.Pi/2-ad)
		}
		next := math.Atan2(math.Sin(ra), math.Cos(ra)*cosE)

		delta := math.Abs(math.Remainder(next-lambda, 2*math.Pi))
		lambda = next
		if delta < cuspTolerance {
			break
		}
	}
	return lambda, nil
}
