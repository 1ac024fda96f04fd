package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMoment reports calendar fields outside their valid ranges.
	ErrInvalidMoment = errors.New("invalid calendar moment")

	// ErrInvalidLocation reports non-finite or out-of-range coordinates.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrUnsupportedLatitude reports a latitude where the house system is
	// undefined (inside the polar circles for Placidus).
	ErrUnsupportedLatitude = errors.New("house system undefined at latitude")

	// ErrEphemerisData reports missing or unreadable ephemeris data.
	ErrEphemerisData = errors.New("ephemeris data unavailable")
)

// ComputationError is the single failure class surfaced by the resonance
// pipeline. It carries the failing stage and the adapter's error unchanged.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// IsInputError reports whether err stems from invalid caller input rather than
// a failure of the ephemeris itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidMoment) || errors.Is(err, ErrInvalidLocation)
}
