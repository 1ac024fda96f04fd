package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
	"github.com/couchcryptid/astro-resonance-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// stubEphemeris serves fixed positions: natal for the birth moment, transits
// for anything else.
type stubEphemeris struct {
	birth     domain.Moment
	natal     domain.PositionSet
	transits  domain.PositionSet
	cusps     domain.HouseCusps
	posErr    error
	housesErr error
}

func (s *stubEphemeris) PositionsAt(_ context.Context, m domain.Moment) (domain.PositionSet, error) {
	if s.posErr != nil {
		return nil, s.posErr
	}
	if m == s.birth {
		return s.natal, nil
	}
	return s.transits, nil
}

func (s *stubEphemeris) HousesAt(_ context.Context, _ domain.Moment, _ domain.Location) (domain.HouseCusps, error) {
	if s.housesErr != nil {
		return domain.HouseCusps{}, s.housesErr
	}
	return s.cusps, nil
}

type recordingLoader struct {
	mu      sync.Mutex
	batches [][]domain.ReadingEvent
	fails   int
}

func (r *recordingLoader) LoadBatch(_ context.Context, events []domain.ReadingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("broker unavailable")
	}
	r.batches = append(r.batches, append([]domain.ReadingEvent(nil), events...))
	return nil
}

func (r *recordingLoader) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- fixtures ---

var (
	testBirth = domain.BirthData{
		Moment:   domain.Moment{Year: 1990, Month: 6, Day: 15, Hour: 14, Minute: 30},
		Location: domain.Location{Lat: 40.7128, Lon: -74.006},
	}
	testNow = time.Date(2025, time.March, 20, 9, 1, 0, 0, time.UTC)
)

func equalCusps() domain.HouseCusps {
	var c domain.HouseCusps
	for i := range c.Cusps {
		c.Cusps[i] = float64(i * 30)
	}
	c.Ascendant = 0
	c.Midheaven = 270
	return c
}

func freezeClock(t *testing.T) {
	t.Helper()
	pipeline.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() {
		pipeline.SetClock(nil)
	})
}

func newComposer(eph domain.Ephemeris) (*pipeline.Composer, *observability.Metrics) {
	metrics := newTestMetrics()
	return pipeline.NewComposer(eph, slog.Default(), metrics), metrics
}

// --- composer tests ---

func TestComposer_CurrentSnapshot(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth:    testBirth.Moment,
		transits: domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 0.5, domain.Moon: 123.25}),
	}
	c, metrics := newComposer(eph)

	snap, err := c.CurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testNow, snap.Timestamp)
	assert.Len(t, snap.Transits, 2)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Computations.WithLabelValues("snapshot", "success")), 0)
}

func TestComposer_NatalChart_AssignsHouses(t *testing.T) {
	eph := &stubEphemeris{
		birth: testBirth.Moment,
		natal: domain.NewPositionSet(map[domain.Body]float64{
			domain.Sun:  15,
			domain.Moon: 359,
			domain.Mars: 90,
		}),
		cusps: equalCusps(),
	}
	c, _ := newComposer(eph)

	chart, err := c.NatalChart(context.Background(), testBirth)
	require.NoError(t, err)

	want := domain.HouseMapping{
		{Body: domain.Sun, House: 1},
		{Body: domain.Moon, House: 12},
		{Body: domain.Mars, House: 4},
	}
	if diff := cmp.Diff(want, chart.Houses); diff != "" {
		t.Fatalf("house mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestComposer_ResonantWeather_SunOnly(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth:    testBirth.Moment,
		natal:    domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 250}),
		transits: domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 250}),
		cusps:    equalCusps(),
	}
	c, _ := newComposer(eph)

	rw, err := c.ResonantWeather(context.Background(), testBirth, domain.Location{Lat: 0, Lon: 0})
	require.NoError(t, err)

	assert.InDelta(t, 1.330971, rw.NatalPressure, 1e-6)
	assert.InDelta(t, 1.0, rw.LatitudeGain, 1e-12)
	assert.InDelta(t, rw.NatalPressure, rw.TransitPressure, 1e-12)
	assert.InDelta(t, 0, rw.Mismatch, 1e-12)
}

func TestComposer_ResonantWeather_PolarGain(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth:    testBirth.Moment,
		natal:    domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 250}),
		transits: domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 250}),
		cusps:    equalCusps(),
	}
	c, _ := newComposer(eph)

	rw, err := c.ResonantWeather(context.Background(), testBirth, domain.Location{Lat: 90, Lon: 0})
	require.NoError(t, err)

	assert.InDelta(t, 1.15, rw.LatitudeGain, 1e-9)
	assert.InDelta(t, rw.NatalPressure*1.15, rw.TransitPressure, 1e-9)
	assert.InDelta(t, rw.NatalPressure*0.15, rw.Mismatch, 1e-9)
}

func TestComposer_FullReading_ExactSquare(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth:    testBirth.Moment,
		natal:    domain.NewPositionSet(map[domain.Body]float64{domain.Moon: 100}),
		transits: domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 10}),
		cusps:    equalCusps(),
	}
	c, _ := newComposer(eph)

	fr, err := c.FullReading(context.Background(), testBirth, domain.Location{Lat: 0, Lon: 0})
	require.NoError(t, err)

	require.Len(t, fr.ActiveTransits, 1)
	a := fr.ActiveTransits[0]
	assert.Equal(t, domain.Sun, a.Body1)
	assert.Equal(t, domain.Moon, a.Body2)
	assert.Equal(t, domain.Square, a.Kind)
	assert.InDelta(t, 90, a.Separation, 1e-12)
	assert.InDelta(t, 0, a.Orb, 1e-12)
	assert.True(t, a.Applying)

	assert.Empty(t, fr.LiveAspects)
	assert.Zero(t, fr.Current.Tension)
	assert.Zero(t, fr.Natal.Tension)
	assert.InDelta(t, domain.Flux(10), fr.Current.Pressure, 1e-12)
}

func TestComposer_FullReading_LiveTension(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth: testBirth.Moment,
		natal: domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 200}),
		transits: domain.NewPositionSet(map[domain.Body]float64{
			domain.Sun:  0,
			domain.Mars: 180, // exact opposition
		}),
		cusps: equalCusps(),
	}
	c, _ := newComposer(eph)

	fr, err := c.FullReading(context.Background(), testBirth, domain.Location{})
	require.NoError(t, err)

	require.Len(t, fr.LiveAspects, 1)
	assert.Equal(t, domain.Opposition, fr.LiveAspects[0].Kind)
	assert.InDelta(t, 0.8*1.5, fr.Current.Tension, 1e-12)
	assert.InDelta(t, math.Abs(fr.Current.Magnitude()-fr.Natal.Magnitude()), fr.Mismatch, 1e-12)
}

func TestComposer_FullReading_Idempotent(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth: testBirth.Moment,
		natal: domain.NewPositionSet(map[domain.Body]float64{
			domain.Sun: 84.2, domain.Moon: 310.9, domain.Venus: 62.1, domain.Saturn: 292.4,
		}),
		transits: domain.NewPositionSet(map[domain.Body]float64{
			domain.Sun: 359.9, domain.Moon: 182.3, domain.Mars: 94.5, domain.Jupiter: 60.7,
		}),
		cusps: equalCusps(),
	}
	c, _ := newComposer(eph)
	here := domain.Location{Lat: 51.5, Lon: -0.12}

	first, err := c.FullReading(context.Background(), testBirth, here)
	require.NoError(t, err)
	second, err := c.FullReading(context.Background(), testBirth, here)
	require.NoError(t, err)

	a, err := json.Marshal(pipeline.FormatFullReading(first))
	require.NoError(t, err)
	b, err := json.Marshal(pipeline.FormatFullReading(second))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestComposer_ResonantWeather_Idempotent(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth: testBirth.Moment,
		natal: domain.NewPositionSet(map[domain.Body]float64{
			domain.Sun: 84.2, domain.Moon: 310.9, domain.Mercury: 71.35, domain.Pluto: 245.0,
		}),
		transits: domain.NewPositionSet(map[domain.Body]float64{
			domain.Sun: 0.3, domain.Venus: 27.77, domain.Neptune: 357.1,
		}),
		cusps: equalCusps(),
	}
	c, _ := newComposer(eph)
	here := domain.Location{Lat: -33.87, Lon: 151.21}

	first, err := c.ResonantWeather(context.Background(), testBirth, here)
	require.NoError(t, err)
	second, err := c.ResonantWeather(context.Background(), testBirth, here)
	require.NoError(t, err)

	a, err := json.Marshal(pipeline.FormatResonantWeather(first))
	require.NoError(t, err)
	b, err := json.Marshal(pipeline.FormatResonantWeather(second))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestComposer_HousesError(t *testing.T) {
	freezeClock(t)
	eph := &stubEphemeris{
		birth:     testBirth.Moment,
		natal:     domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 1}),
		transits:  domain.NewPositionSet(map[domain.Body]float64{domain.Sun: 2}),
		housesErr: domain.ErrUnsupportedLatitude,
	}
	c, metrics := newComposer(eph)

	_, err := c.FullReading(context.Background(), testBirth, domain.Location{})
	require.Error(t, err)

	var compErr *domain.ComputationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, "natal houses", compErr.Op)
	require.ErrorIs(t, err, domain.ErrUnsupportedLatitude)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Computations.WithLabelValues("full_reading", "error")), 0)
}

func TestComposer_PositionsError(t *testing.T) {
	eph := &stubEphemeris{birth: testBirth.Moment, posErr: domain.ErrEphemerisData}
	c, _ := newComposer(eph)

	_, err := c.ResonantWeather(context.Background(), testBirth, domain.Location{})
	var compErr *domain.ComputationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, "natal positions", compErr.Op)
	assert.ErrorIs(t, err, domain.ErrEphemerisData)
}

// --- response tests ---

func TestFormatNatalChart_KeyOrder(t *testing.T) {
	eph := &stubEphemeris{
		birth: testBirth.Moment,
		natal: domain.NewPositionSet(map[domain.Body]float64{
			domain.Pluto: 10.123456, domain.Sun: 20.00004,
		}),
		cusps: equalCusps(),
	}
	c, _ := newComposer(eph)
	chart, err := c.NatalChart(context.Background(), testBirth)
	require.NoError(t, err)

	out, err := json.Marshal(pipeline.FormatNatalChart(testNow, chart))
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, `"timestamp_utc":"2025-03-20T09:01:00Z"`)
	assert.Contains(t, body, `"planetary_positions":{"sun":20,"pluto":10.1235}`)
	assert.Contains(t, body, `"house_cusps":{"house_1":0,"house_2":30,`)
	assert.Contains(t, body, `"house_12":330}`)
	assert.Contains(t, body, `"planet_house_mapping":{"sun":1,"pluto":1}`)
	assert.Contains(t, body, `"midheaven":270`)
}

func TestFormatFullReading_EmptyAspectsEncodeAsArrays(t *testing.T) {
	out, err := json.Marshal(pipeline.FormatFullReading(pipeline.FullReading{Timestamp: testNow}))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"active_transits":[]`)
	assert.Contains(t, string(out), `"live_aspects":[]`)
	assert.Contains(t, string(out), `"transiting_positions":{}`)
}

func TestFormatFullReading_RoundsScalars(t *testing.T) {
	fr := pipeline.FullReading{
		Timestamp:    testNow,
		Current:      domain.RPIVector{Pressure: 3, Tension: 4},
		Mismatch:     -0.0000001,
		LatitudeGain: 1.12345678,
	}
	resp := pipeline.FormatFullReading(fr)
	assert.InDelta(t, 5.0, resp.RPIVector.Magnitude, 0)
	assert.InDelta(t, 1.123457, resp.LatitudeGain, 1e-12)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"rpi_mismatch":0,`)
}

func TestOrderedObject_Get(t *testing.T) {
	obj := pipeline.OrderedObject{{Key: "b", Value: 2}, {Key: "a", Value: 1}}
	v, ok := obj.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = obj.Get("c")
	assert.False(t, ok)

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2,"a":1}`, string(out))
	assert.Equal(t, `{"b":2,"a":1}`, string(out))
}

// --- publisher tests ---

func makeEvent(t *testing.T, minute int) domain.ReadingEvent {
	t.Helper()
	ev, err := domain.NewReadingEvent(domain.KindResonantWeather, testBirth, domain.Location{Lat: 1, Lon: 2},
		testNow.Add(time.Duration(minute)*time.Minute), map[string]int{"minute": minute})
	require.NoError(t, err)
	return ev
}

func TestPublisher_Run_FlushesOnShutdown(t *testing.T) {
	ldr := &recordingLoader{}
	metrics := newTestMetrics()
	p := pipeline.NewPublisher(ldr, slog.Default(), metrics, 2, 50*time.Millisecond, 16)

	for i := range 3 {
		require.True(t, p.Enqueue(makeEvent(t, i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 3, ldr.total())
	assert.InDelta(t, 3.0, testutil.ToFloat64(metrics.EventsPublished), 0)
	assert.False(t, p.Running())
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PublisherRunning), 0)
}

func TestPublisher_Run_CancelledBeforeStart(t *testing.T) {
	ldr := &recordingLoader{}
	p := pipeline.NewPublisher(ldr, slog.Default(), newTestMetrics(), 10, time.Second, 16)
	require.True(t, p.Enqueue(makeEvent(t, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, ldr.total())
}

func TestPublisher_Run_RetriesAfterError(t *testing.T) {
	ldr := &recordingLoader{fails: 1}
	metrics := newTestMetrics()
	p := pipeline.NewPublisher(ldr, slog.Default(), metrics, 1, 20*time.Millisecond, 16)
	require.True(t, p.Enqueue(makeEvent(t, 0)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, ldr.total())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestPublisher_Enqueue_DropsWhenFull(t *testing.T) {
	metrics := newTestMetrics()
	p := pipeline.NewPublisher(&recordingLoader{}, slog.Default(), metrics, 10, time.Second, 1)

	assert.True(t, p.Enqueue(makeEvent(t, 0)))
	assert.False(t, p.Enqueue(makeEvent(t, 1)))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.EventsDropped), 0)
}
