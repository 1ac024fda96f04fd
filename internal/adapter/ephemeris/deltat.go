package ephemeris

// deltaT estimates TT - UT in seconds for a decimal year using the
// Espenak-Meeus polynomials. Outside 1941..2150 the long-term parabola is used.
func deltaT(y float64) float64 {
	switch {
	case y >= 1941 && y < 1961:
		t := y - 1950
		return 29.07 + 0.407*t - t*t/233 + t*t*t/2547
	case y >= 1961 && y < 1986:
		t := y - 1975
		return 45.45 + 1.067*t - t*t/260 - t*t*t/718
	case y >= 1986 && y < 2005:
		t := y - 2000
		t2 := t * t
		return 63.86 + 0.3345*t - 0.060374*t2 + 0.0017275*t2*t + 0.000651814*t2*t2 + 0.00002373599*t2*t2*t
	case y >= 2005 && y < 2050:
		t := y - 2000
		return 62.92 + 0.32217*t + 0.005589*t*t
	case y >= 2050 && y < 2150:
		u := (y - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-y)
	default:
		u := (y - 1820) / 100
		return -20 + 32*u*u
	}
}
