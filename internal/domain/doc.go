// Package domain implements the Field Resonance Calculus: the deterministic
// numerical pipeline that turns ecliptic longitudes and house cusps into
// pressure, tension, and resonance metrics.
//
// # Inputs
//
// Every computation starts from a [PositionSet] (ecliptic longitudes of the
// eleven bodies in [Bodies]) and, for natal charts, a [HouseCusps] value. Both
// come from an [Ephemeris] implementation; the calculus never computes
// astronomical positions itself.
//
// Longitudes are circular. Every consumer reduces them with [Normalize] before
// comparing:
//
//	Normalize(-10)  = 350
//	Normalize(725)  = 5
//
// # Cosmic Flux
//
// [Flux] maps a longitude to a scalar using a base level of 1.0 plus five
// Gaussian lobes (center, sigma, amplitude):
//
//	+0.25 @ 250°  σ=20
//	+0.18 @ 310°  σ=15
//	+0.15 @ 270°  σ=18
//	-0.20 @  80°  σ=25
//	-0.10 @  35°  σ=25
//
// Lobes are evaluated on the normalized longitude without wrapping across the
// 0°/360° seam. All centers sit far enough from the seam that the error is
// negligible, and downstream consumers depend on this exact numeric behavior.
//
// # Pressure and Latitude Gain
//
// [Pressure] is the weighted sum of flux over the bodies present in the static
// weight table (see [DefaultWeights]). [LatitudeGain] scales transit pressure by
// observer latitude:
//
//	g(φ) = 1 + 0.15 * (1 - cos(φ)^4)     1.0 at the equator, 1.15 at the poles
//
// # Houses
//
// Twelve cusps partition the ecliptic. House i spans [cusp[i-1], cusp[i mod 12]);
// an arc whose start is greater than its end crosses 0° and matches when the
// longitude is past the start or before the end. The first matching house wins.
// See [AssignHouses].
//
// # Aspects and Tension
//
// [FindAspects] compares two position sets pair by pair. Definitions are tried
// in a fixed priority order and the first one within orb wins:
//
//	conjunction    0°  orb 8  weight 1.0
//	opposition   180°  orb 8  weight 0.8
//	square        90°  orb 6  weight 0.7
//	trine        120°  orb 6  weight 0.6
//	sextile       60°  orb 4  weight 0.5
//
// An aspect is "applying" when its orb is under half the maximum orb. This is a
// heuristic; true applying/separating needs relative angular velocity, which the
// calculus does not model.
//
// [Tension] sums weight * (1 - orb/maxOrb) over aspects, with squares and
// oppositions weighted 1.5x.
//
// # RPI Vector
//
// The resonance-pressure index is the 2D vector (pressure, tension). Its
// magnitude is derived on demand, never stored. See [RPIVector].
package domain
