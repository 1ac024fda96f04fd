//go:build ephemeris

package ephemeris

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests load the real VSOP87B files and require EPHEMERIS_PATH.
// Run with: go test -tags=ephemeris ./internal/adapter/ephemeris/ -v -count=1

func smokeEngine(t *testing.T) *Engine {
	t.Helper()
	dir := os.Getenv("EPHEMERIS_PATH")
	if dir == "" {
		t.Fatal("EPHEMERIS_PATH must be set to run smoke tests")
	}
	e, err := NewEngine(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return e
}

func TestSmoke_PositionsAtJ2000(t *testing.T) {
	e := smokeEngine(t)
	require.NoError(t, e.CheckReadiness(context.Background()))

	ps, err := e.PositionsAt(context.Background(), domain.Moment{Year: 2000, Month: 1, Day: 1, Hour: 12})
	require.NoError(t, err)
	require.Len(t, ps, len(domain.Bodies()))

	sun, ok := ps.Longitude(domain.Sun)
	require.True(t, ok)
	assert.InDelta(t, 280.37, sun, 0.05)

	for _, p := range ps {
		assert.GreaterOrEqual(t, p.Longitude, 0.0, p.Body)
		assert.Less(t, p.Longitude, 360.0, p.Body)
	}
}

func TestSmoke_HousesAtNewYork(t *testing.T) {
	e := smokeEngine(t)

	c, err := e.HousesAt(context.Background(),
		domain.Moment{Year: 1990, Month: 6, Day: 15, Hour: 14, Minute: 30},
		domain.Location{Lat: 40.7128, Lon: -74.006})
	require.NoError(t, err)
	assert.InDelta(t, 180, domain.Separation(c.Ascendant, c.Cusps[6]), 1e-9)
	assert.Equal(t, c.Midheaven, c.Cusps[9])
}

func TestSmoke_HousesRejectPolarLatitude(t *testing.T) {
	e := smokeEngine(t)

	_, err := e.HousesAt(context.Background(),
		domain.Moment{Year: 1990, Month: 6, Day: 15, Hour: 14, Minute: 30},
		domain.Location{Lat: 78.2, Lon: 15.6})
	require.ErrorIs(t, err, domain.ErrUnsupportedLatitude)
}
