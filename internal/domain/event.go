package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Reading kinds emitted as events.
const (
	KindResonantWeather = "resonant_weather"
	KindFullReading     = "full_reading"
)

// ReadingEvent is a computed reading destined for the event stream.
type ReadingEvent struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Natal      BirthData       `json:"-"`
	Current    Location        `json:"-"`
	ComputedAt time.Time       `json:"computed_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewReadingEvent wraps an already formatted response payload. The ID is
// derived from the inputs and the computation minute, so the same request
// replayed within a minute maps to the same event.
func NewReadingEvent(kind string, natal BirthData, current Location, computedAt time.Time, payload any) (ReadingEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return ReadingEvent{}, fmt.Errorf("encode reading payload: %w", err)
	}
	return ReadingEvent{
		ID:         generateID(kind, natal, current, computedAt),
		Kind:       kind,
		Natal:      natal,
		Current:    current,
		ComputedAt: computedAt.UTC(),
		Payload:    data,
	}, nil
}

// generateID hashes kind|natal moment|natal place|current place|minute.
func generateID(kind string, natal BirthData, current Location, computedAt time.Time) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f|%.4f|%.4f|%s",
		kind,
		natal.Moment, natal.Location.Lat, natal.Location.Lon,
		current.Lat, current.Lon,
		MomentOf(computedAt),
	)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if kind == "" {
		return short
	}
	return kind + "-" + short
}
