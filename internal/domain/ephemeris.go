package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Moment is a civil calendar minute. No time zone is attached; callers
// supply values already in the reference frame they want (normally UTC).
type Moment struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// MomentOf truncates t to the minute in UTC.
func MomentOf(t time.Time) Moment {
	t = t.UTC()
	return Moment{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}
}

// Time returns the moment as a UTC time.
func (m Moment) Time() time.Time {
	return time.Date(m.Year, time.Month(m.Month), m.Day, m.Hour, m.Minute, 0, 0, time.UTC)
}

// Validate rejects calendar fields outside their ranges, including days past
// the end of the month.
func (m Moment) Validate() error {
	switch {
	case m.Year < 1 || m.Year > 9999:
		return fmt.Errorf("%w: year %d out of range 1..9999", ErrInvalidMoment, m.Year)
	case m.Month < 1 || m.Month > 12:
		return fmt.Errorf("%w: month %d out of range 1..12", ErrInvalidMoment, m.Month)
	case m.Hour < 0 || m.Hour > 23:
		return fmt.Errorf("%w: hour %d out of range 0..23", ErrInvalidMoment, m.Hour)
	case m.Minute < 0 || m.Minute > 59:
		return fmt.Errorf("%w: minute %d out of range 0..59", ErrInvalidMoment, m.Minute)
	}
	last := time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if m.Day < 1 || m.Day > last {
		return fmt.Errorf("%w: day %d out of range 1..%d", ErrInvalidMoment, m.Day, last)
	}
	return nil
}

func (m Moment) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", m.Year, m.Month, m.Day, m.Hour, m.Minute)
}

// Location is a WGS-84 latitude/longitude pair in degrees, east positive.
type Location struct {
	Lat float64
	Lon float64
}

// Validate rejects non-finite or out-of-range coordinates.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range -90..90", ErrInvalidLocation, l.Lat)
	}
	if math.IsNaN(l.Lon) || math.IsInf(l.Lon, 0) || l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range -180..180", ErrInvalidLocation, l.Lon)
	}
	return nil
}

// BirthData is the moment and place of a natal chart.
type BirthData struct {
	Moment   Moment
	Location Location
}

// Ephemeris supplies planetary longitudes and house cusps. Implementations
// must be safe for concurrent use.
type Ephemeris interface {
	// PositionsAt returns the ecliptic longitudes of all tracked bodies.
	PositionsAt(ctx context.Context, m Moment) (PositionSet, error)

	// HousesAt returns the twelve house cusps plus Ascendant and Midheaven
	// for an observer at loc.
	HousesAt(ctx context.Context, m Moment, loc Location) (HouseCusps, error)
}
