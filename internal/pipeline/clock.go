package pipeline

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock supplies the present moment for transit positions. Tests freeze it
// with SetClock so snapshots and readings are reproducible.
var clock = clockwork.NewRealClock()

// SetClock replaces the transit time source. Pass nil to restore real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time truncated to whole seconds in UTC.
func Now() time.Time {
	return clock.Now().UTC().Truncate(time.Second)
}
