package pipeline

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
)

// Computation kinds, used as metric labels and log fields.
const (
	kindSnapshot        = "snapshot"
	kindNatalChart      = "natal_chart"
	kindResonantWeather = domain.KindResonantWeather
	kindFullReading     = domain.KindFullReading
)

// Snapshot is the transiting sky at a moment.
type Snapshot struct {
	Timestamp time.Time
	Transits  domain.PositionSet
}

// NatalChart is a birth chart: positions, cusps, and the house of each body.
type NatalChart struct {
	Positions domain.PositionSet
	Cusps     domain.HouseCusps
	Houses    domain.HouseMapping
}

// ResonantWeather compares natal pressure with latitude-adjusted transit pressure.
type ResonantWeather struct {
	Timestamp       time.Time
	NatalPressure   float64
	TransitPressure float64 // gain applied
	LatitudeGain    float64
	Mismatch        float64 // |TransitPressure - NatalPressure|
	Chart           NatalChart
	Transits        domain.PositionSet
}

// FullReading adds aspects and the RPI vectors to the resonant weather.
type FullReading struct {
	Timestamp      time.Time
	Current        domain.RPIVector
	Natal          domain.RPIVector
	Mismatch       float64 // |Current.Magnitude() - Natal.Magnitude()|
	LatitudeGain   float64
	ActiveTransits []domain.Aspect // transit x natal
	LiveAspects    []domain.Aspect // transit x transit, each pair once
	Chart          NatalChart
	Transits       domain.PositionSet
}

// Composer runs the resonance calculus on top of an ephemeris. It holds no
// mutable state and is safe for concurrent use when the ephemeris is.
type Composer struct {
	ephemeris domain.Ephemeris
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewComposer creates a Composer over the given ephemeris.
func NewComposer(eph domain.Ephemeris, logger *slog.Logger, metrics *observability.Metrics) *Composer {
	return &Composer{
		ephemeris: eph,
		logger:    logger,
		metrics:   metrics,
	}
}

// CurrentSnapshot returns the transiting positions for the present minute.
func (c *Composer) CurrentSnapshot(ctx context.Context) (snap Snapshot, err error) {
	defer c.observe(kindSnapshot, time.Now(), &err)

	ts := Now()
	transits, err := c.positions(ctx, "transit positions", domain.MomentOf(ts))
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Timestamp: ts, Transits: transits}, nil
}

// NatalChart computes the birth chart for the given birth data.
func (c *Composer) NatalChart(ctx context.Context, birth domain.BirthData) (chart NatalChart, err error) {
	defer c.observe(kindNatalChart, time.Now(), &err)
	return c.natalChart(ctx, birth)
}

// ResonantWeather computes natal and transit pressure and their mismatch for
// an observer at here.
func (c *Composer) ResonantWeather(ctx context.Context, birth domain.BirthData, here domain.Location) (rw ResonantWeather, err error) {
	defer c.observe(kindResonantWeather, time.Now(), &err)

	chart, err := c.natalChart(ctx, birth)
	if err != nil {
		return ResonantWeather{}, err
	}

	ts := Now()
	transits, err := c.positions(ctx, "transit positions", domain.MomentOf(ts))
	if err != nil {
		return ResonantWeather{}, err
	}

	pNat := domain.Pressure(chart.Positions)
	gain := domain.LatitudeGain(here.Lat)
	pTra := domain.Pressure(transits) * gain

	return ResonantWeather{
		Timestamp:       ts,
		NatalPressure:   pNat,
		TransitPressure: pTra,
		LatitudeGain:    gain,
		Mismatch:        math.Abs(pTra - pNat),
		Chart:           chart,
		Transits:        transits,
	}, nil
}

// FullReading computes the resonant weather plus transit-to-natal aspects,
// live sky aspects, tension, and both RPI vectors.
func (c *Composer) FullReading(ctx context.Context, birth domain.BirthData, here domain.Location) (fr FullReading, err error) {
	defer c.observe(kindFullReading, time.Now(), &err)

	chart, err := c.natalChart(ctx, birth)
	if err != nil {
		return FullReading{}, err
	}

	ts := Now()
	transits, err := c.positions(ctx, "transit positions", domain.MomentOf(ts))
	if err != nil {
		return FullReading{}, err
	}

	active := domain.FindAspects(transits, chart.Positions, false)
	live := domain.FindAspects(transits, transits, true)

	gain := domain.LatitudeGain(here.Lat)
	natal := domain.NatalVector(domain.Pressure(chart.Positions))
	current := domain.RPIVector{
		Pressure: domain.Pressure(transits) * gain,
		Tension:  domain.Tension(live),
	}

	c.logger.Debug("full reading computed",
		"natal_moment", birth.Moment.String(),
		"active_transits", len(active),
		"live_aspects", len(live),
		"tension", current.Tension,
	)

	return FullReading{
		Timestamp:      ts,
		Current:        current,
		Natal:          natal,
		Mismatch:       math.Abs(current.Magnitude() - natal.Magnitude()),
		LatitudeGain:   gain,
		ActiveTransits: active,
		LiveAspects:    live,
		Chart:          chart,
		Transits:       transits,
	}, nil
}

func (c *Composer) natalChart(ctx context.Context, birth domain.BirthData) (NatalChart, error) {
	positions, err := c.positions(ctx, "natal positions", birth.Moment)
	if err != nil {
		return NatalChart{}, err
	}

	cusps, err := c.ephemeris.HousesAt(ctx, birth.Moment, birth.Location)
	if err != nil {
		return NatalChart{}, &domain.ComputationError{Op: "natal houses", Err: err}
	}

	return NatalChart{
		Positions: positions,
		Cusps:     cusps,
		Houses:    domain.AssignHouses(positions, cusps),
	}, nil
}

func (c *Composer) positions(ctx context.Context, op string, m domain.Moment) (domain.PositionSet, error) {
	ps, err := c.ephemeris.PositionsAt(ctx, m)
	if err != nil {
		return nil, &domain.ComputationError{Op: op, Err: err}
	}
	return ps, nil
}

// observe records duration and outcome; errp is read after the computation returns.
func (c *Composer) observe(kind string, start time.Time, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = "error"
		c.logger.Warn("resonance computation failed", "kind", kind, "error", *errp)
	}
	c.metrics.Computations.WithLabelValues(kind, outcome).Inc()
	c.metrics.ComputeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
