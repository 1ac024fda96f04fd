package pipeline

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
)

// Rounding applied at the response boundary only.
const (
	angleDecimals  = 4
	scalarDecimals = 6
)

// SnapshotResponse is the wire form of a Snapshot.
type SnapshotResponse struct {
	TimestampUTC        string        `json:"timestamp_utc"`
	TransitingPositions OrderedObject `json:"transiting_positions"`
}

// NatalChartData is the wire form of a NatalChart.
type NatalChartData struct {
	PlanetaryPositions OrderedObject `json:"planetary_positions"`
	HouseCusps         OrderedObject `json:"house_cusps"`
	PlanetHouseMapping OrderedObject `json:"planet_house_mapping"`
	Ascendant          float64       `json:"ascendant"`
	Midheaven          float64       `json:"midheaven"`
}

// NatalChartResponse is the standalone natal chart payload.
type NatalChartResponse struct {
	TimestampUTC string `json:"timestamp_utc"`
	NatalChartData
}

// ResonantWeatherResponse is the wire form of a ResonantWeather.
type ResonantWeatherResponse struct {
	TimestampUTC        string         `json:"timestamp_utc"`
	PNat                float64        `json:"p_nat"`
	PTra                float64        `json:"p_tra"`
	LatitudeGain        float64        `json:"latitude_gain"`
	RPIMismatch         float64        `json:"rpi_mismatch"`
	NatalChart          NatalChartData `json:"natal_chart"`
	TransitingPositions OrderedObject  `json:"transiting_positions"`
}

// AspectResponse is the wire form of a domain.Aspect.
type AspectResponse struct {
	Planet1    string  `json:"planet1"`
	Planet2    string  `json:"planet2"`
	AspectType string  `json:"aspect_type"`
	Angle      float64 `json:"angle"`
	Orb        float64 `json:"orb"`
	IsApplying bool    `json:"is_applying"`
}

// RPIVectorResponse is the wire form of a domain.RPIVector.
type RPIVectorResponse struct {
	Pressure  float64 `json:"pressure"`
	Tension   float64 `json:"tension"`
	Magnitude float64 `json:"magnitude"`
}

// FullReadingResponse is the wire form of a FullReading.
type FullReadingResponse struct {
	TimestampUTC        string            `json:"timestamp_utc"`
	RPIVector           RPIVectorResponse `json:"rpi_vector"`
	RPIMismatch         float64           `json:"rpi_mismatch"`
	LatitudeGain        float64           `json:"latitude_gain"`
	ActiveTransits      []AspectResponse  `json:"active_transits"`
	LiveAspects         []AspectResponse  `json:"live_aspects"`
	NatalChart          NatalChartData    `json:"natal_chart"`
	TransitingPositions OrderedObject     `json:"transiting_positions"`
}

// FormatSnapshot rounds a Snapshot for the wire.
func FormatSnapshot(s Snapshot) SnapshotResponse {
	return SnapshotResponse{
		TimestampUTC:        formatTimestamp(s.Timestamp),
		TransitingPositions: formatPositions(s.Transits),
	}
}

// FormatNatalChart rounds a standalone natal chart for the wire.
func FormatNatalChart(ts time.Time, c NatalChart) NatalChartResponse {
	return NatalChartResponse{
		TimestampUTC:   formatTimestamp(ts),
		NatalChartData: formatChart(c),
	}
}

// FormatResonantWeather rounds a ResonantWeather for the wire.
func FormatResonantWeather(rw ResonantWeather) ResonantWeatherResponse {
	return ResonantWeatherResponse{
		TimestampUTC:        formatTimestamp(rw.Timestamp),
		PNat:                round(rw.NatalPressure, scalarDecimals),
		PTra:                round(rw.TransitPressure, scalarDecimals),
		LatitudeGain:        round(rw.LatitudeGain, scalarDecimals),
		RPIMismatch:         round(rw.Mismatch, scalarDecimals),
		NatalChart:          formatChart(rw.Chart),
		TransitingPositions: formatPositions(rw.Transits),
	}
}

// FormatFullReading rounds a FullReading for the wire. The reported vector is
// the current one; the natal vector only feeds the mismatch.
func FormatFullReading(fr FullReading) FullReadingResponse {
	return FullReadingResponse{
		TimestampUTC: formatTimestamp(fr.Timestamp),
		RPIVector: RPIVectorResponse{
			Pressure:  round(fr.Current.Pressure, scalarDecimals),
			Tension:   round(fr.Current.Tension, scalarDecimals),
			Magnitude: round(fr.Current.Magnitude(), scalarDecimals),
		},
		RPIMismatch:         round(fr.Mismatch, scalarDecimals),
		LatitudeGain:        round(fr.LatitudeGain, scalarDecimals),
		ActiveTransits:      formatAspects(fr.ActiveTransits),
		LiveAspects:         formatAspects(fr.LiveAspects),
		NatalChart:          formatChart(fr.Chart),
		TransitingPositions: formatPositions(fr.Transits),
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatPositions(ps domain.PositionSet) OrderedObject {
	obj := make(OrderedObject, 0, len(ps))
	for _, p := range ps {
		obj = append(obj, Field{Key: string(p.Body), Value: round(p.Longitude, angleDecimals)})
	}
	return obj
}

func formatChart(c NatalChart) NatalChartData {
	cusps := make(OrderedObject, 0, len(c.Cusps.Cusps))
	for i, v := range c.Cusps.Cusps {
		cusps = append(cusps, Field{Key: "house_" + strconv.Itoa(i+1), Value: round(v, angleDecimals)})
	}

	houses := make(OrderedObject, 0, len(c.Houses))
	for _, h := range c.Houses {
		houses = append(houses, Field{Key: string(h.Body), Value: h.House})
	}

	return NatalChartData{
		PlanetaryPositions: formatPositions(c.Positions),
		HouseCusps:         cusps,
		PlanetHouseMapping: houses,
		Ascendant:          round(c.Cusps.Ascendant, angleDecimals),
		Midheaven:          round(c.Cusps.Midheaven, angleDecimals),
	}
}

func formatAspects(as []domain.Aspect) []AspectResponse {
	out := make([]AspectResponse, 0, len(as))
	for _, a := range as {
		out = append(out, AspectResponse{
			Planet1:    string(a.Body1),
			Planet2:    string(a.Body2),
			AspectType: string(a.Kind),
			Angle:      round(a.Separation, angleDecimals),
			Orb:        round(a.Orb, angleDecimals),
			IsApplying: a.Applying,
		})
	}
	return out
}

// round rounds half away from zero to the given number of decimals.
func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	r := math.Round(x*p) / p
	if r == 0 {
		return 0 // no "-0" on the wire
	}
	return r
}

// Field is one key/value pair of an OrderedObject.
type Field struct {
	Key   string
	Value any
}

// OrderedObject encodes as a JSON object whose keys keep slice order.
type OrderedObject []Field

func (o OrderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (o OrderedObject) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}
