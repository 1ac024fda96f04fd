package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/pluto"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
)

const (
	// lightTimeDays is the light travel time per AU, in days.
	lightTimeDays = 0.0057755183
	// solarAberration is the annual aberration constant in arcseconds at 1 AU.
	solarAberration = 20.4898
)

// planetFiles lists the VSOP87B series loaded from the data directory.
var planetFiles = []struct {
	body  domain.Body
	index int
}{
	{domain.Mercury, pp.Mercury},
	{domain.Venus, pp.Venus},
	{domain.Mars, pp.Mars},
	{domain.Jupiter, pp.Jupiter},
	{domain.Saturn, pp.Saturn},
	{domain.Uranus, pp.Uranus},
	{domain.Neptune, pp.Neptune},
}

// Engine implements domain.Ephemeris on top of the VSOP87 planetary theory,
// the ELP lunar theory, and the Meeus Pluto series. Longitudes are apparent
// geocentric ecliptic longitudes of date.
type Engine struct {
	earth   *pp.V87Planet
	planets map[domain.Body]*pp.V87Planet
	logger  *slog.Logger
}

// NewEngine loads the VSOP87B files from dir. It fails when any file is
// missing or unreadable.
func NewEngine(dir string, logger *slog.Logger) (*Engine, error) {
	earth, err := pp.LoadPlanetPath(pp.Earth, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: load earth series from %s: %w", domain.ErrEphemerisData, dir, err)
	}

	planets := make(map[domain.Body]*pp.V87Planet, len(planetFiles))
	for _, f := range planetFiles {
		p, err := pp.LoadPlanetPath(f.index, dir)
		if err != nil {
			return nil, fmt.Errorf("%w: load %s series from %s: %w", domain.ErrEphemerisData, f.body, dir, err)
		}
		planets[f.body] = p
	}

	logger.Info("ephemeris loaded", "path", dir, "series", len(planets)+1)
	return &Engine{earth: earth, planets: planets, logger: logger}, nil
}

// CheckReadiness reports whether positions for the present minute can be
// computed.
func (e *Engine) CheckReadiness(ctx context.Context) error {
	if e == nil || e.earth == nil {
		return errors.New("ephemeris not loaded")
	}
	_, err := e.PositionsAt(ctx, domain.MomentOf(time.Now()))
	return err
}

// PositionsAt returns the longitude of every canonical body at m.
func (e *Engine) PositionsAt(ctx context.Context, m domain.Moment) (domain.PositionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	_, jde := julianDays(m)
	dpsi, _ := nutation.Nutation(jde)
	prec := precessionJ2000(jde)

	l0, b0, r0 := e.earth.Position2000(jde)
	ex, ey, ez := rectangular(l0, b0, r0)

	lon := make(map[domain.Body]float64, len(planetFiles)+4)

	// Heliocentric earth reversed gives the geometric sun.
	sun := l0.Rad() + math.Pi + prec + dpsi.Rad() - unit.AngleFromSec(solarAberration/r0).Rad()
	lon[domain.Sun] = toDegrees(sun)

	for _, f := range planetFiles {
		λ := geocentric(e.planets[f.body].Position2000, jde, ex, ey, ez)
		lon[f.body] = toDegrees(λ + prec + dpsi.Rad())
	}

	λp := geocentric(pluto.Heliocentric, jde, ex, ey, ez)
	lon[domain.Pluto] = toDegrees(λp + prec + dpsi.Rad())

	λm, _, _ := moonposition.Position(jde)
	lon[domain.Moon] = toDegrees(λm.Rad() + dpsi.Rad())
	lon[domain.NorthNode] = toDegrees(moonposition.TrueNode(jde).Rad() + dpsi.Rad())

	return domain.NewPositionSet(lon), nil
}

// HousesAt returns the Placidus cusps for an observer at loc at m.
func (e *Engine) HousesAt(ctx context.Context, m domain.Moment, loc domain.Location) (domain.HouseCusps, error) {
	if err := ctx.Err(); err != nil {
		return domain.HouseCusps{}, err
	}
	if err := m.Validate(); err != nil {
		return domain.HouseCusps{}, err
	}
	if err := loc.Validate(); err != nil {
		return domain.HouseCusps{}, err
	}

	jd, jde := julianDays(m)
	_, deps := nutation.Nutation(jde)
	eps := nutation.MeanObliquity(jde).Rad() + deps.Rad()
	ramc := sidereal.Apparent(jd).Rad() + loc.Lon*math.Pi/180

	cusps, err := placidus(ramc, eps, loc.Lat*math.Pi/180)
	if err != nil {
		e.logger.Debug("house computation rejected", "moment", m.String(), "lat", loc.Lat, "error", err)
		return domain.HouseCusps{}, err
	}
	return cusps, nil
}

// julianDays returns the Julian Day in UT and in dynamical time.
func julianDays(m domain.Moment) (jd, jde float64) {
	day := float64(m.Day) + (float64(m.Hour)+float64(m.Minute)/60)/24
	jd = julian.CalendarGregorianToJD(m.Year, m.Month, day)
	year := float64(m.Year) + (float64(m.Month)-0.5)/12
	return jd, jd + deltaT(year)/86400
}

// geocentric converts a heliocentric J2000 series into a geocentric J2000
// longitude in radians, corrected once for light time.
func geocentric(series func(float64) (unit.Angle, unit.Angle, float64), jde, ex, ey, ez float64) float64 {
	l, b, r := series(jde)
	x, y, z := rectangular(l, b, r)
	dist := math.Sqrt((x-ex)*(x-ex) + (y-ey)*(y-ey) + (z-ez)*(z-ez))

	l, b, r = series(jde - lightTimeDays*dist)
	x, y, _ = rectangular(l, b, r)
	return math.Atan2(y-ey, x-ex)
}

func rectangular(l, b unit.Angle, r float64) (x, y, z float64) {
	sl, cl := math.Sincos(l.Rad())
	sb, cb := math.Sincos(b.Rad())
	return r * cb * cl, r * cb * sl, r * sb
}

// precessionJ2000 is the general precession in longitude from J2000 to jde,
// in radians.
func precessionJ2000(jde float64) float64 {
	t := (jde - 2451545.0) / 36525
	arcsec := 5029.0966*t + 1.11113*t*t
	return unit.AngleFromSec(arcsec).Rad()
}

func toDegrees(rad float64) float64 {
	return domain.Normalize(rad * 180 / math.Pi)
}
