package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
	"github.com/couchcryptid/astro-resonance-service/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// natalDataRequest is the birth data body. Pointer fields distinguish a
// missing field from a zero value.
type natalDataRequest struct {
	Year   *int     `json:"year"`
	Month  *int     `json:"month"`
	Day    *int     `json:"day"`
	Hour   *int     `json:"hour"`
	Minute *int     `json:"minute"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type readingRequest struct {
	NatalData       *natalDataRequest `json:"natal_data"`
	CurrentLocation *locationRequest  `json:"current_location"`
}

type bannerResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// requestError is a client error with the status it maps to.
type requestError struct {
	status int
	detail string
}

func (e *requestError) Error() string { return e.detail }

func invalid(format string, args ...any) *requestError {
	return &requestError{status: http.StatusUnprocessableEntity, detail: fmt.Sprintf(format, args...)}
}

func (n *natalDataRequest) birthData(prefix string) (domain.BirthData, error) {
	if n == nil {
		return domain.BirthData{}, invalid("%s: field required", strings.TrimSuffix(prefix, "."))
	}
	ints := []struct {
		name string
		v    *int
	}{
		{"year", n.Year}, {"month", n.Month}, {"day", n.Day}, {"hour", n.Hour}, {"minute", n.Minute},
	}
	for _, f := range ints {
		if f.v == nil {
			return domain.BirthData{}, invalid("%s%s: field required", prefix, f.name)
		}
	}

	loc, err := (&locationRequest{Lat: n.Lat, Lon: n.Lon}).location(prefix)
	if err != nil {
		return domain.BirthData{}, err
	}

	m := domain.Moment{Year: *n.Year, Month: *n.Month, Day: *n.Day, Hour: *n.Hour, Minute: *n.Minute}
	if err := m.Validate(); err != nil {
		return domain.BirthData{}, invalid("%s", err)
	}
	return domain.BirthData{Moment: m, Location: loc}, nil
}

func (l *locationRequest) location(prefix string) (domain.Location, error) {
	if l == nil {
		return domain.Location{}, invalid("%s: field required", strings.TrimSuffix(prefix, "."))
	}
	if l.Lat == nil {
		return domain.Location{}, invalid("%slat: field required", prefix)
	}
	if l.Lon == nil {
		return domain.Location{}, invalid("%slon: field required", prefix)
	}
	loc := domain.Location{Lat: *l.Lat, Lon: *l.Lon}
	if err := loc.Validate(); err != nil {
		return domain.Location{}, invalid("%s", err)
	}
	return loc, nil
}

func (r *readingRequest) inputs() (domain.BirthData, domain.Location, error) {
	birth, err := r.NatalData.birthData("natal_data.")
	if err != nil {
		return domain.BirthData{}, domain.Location{}, err
	}
	here, err := r.CurrentLocation.location("current_location.")
	if err != nil {
		return domain.BirthData{}, domain.Location{}, err
	}
	return birth, here, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, bannerResponse{
		Service: observability.AppName,
		Version: observability.Version,
		Status:  "online",
		Message: "Astro-Resonance Service is online. Awaiting coherent queries.",
	})
}

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	snap, err := s.resonance.CurrentSnapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, pipeline.FormatSnapshot(snap))
}

func (s *Server) handleNatalChart(w http.ResponseWriter, r *http.Request) {
	var req natalDataRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	birth, err := req.birthData("")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	chart, err := s.resonance.NatalChart(r.Context(), birth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeResult(w, r, pipeline.FormatNatalChart(pipeline.Now(), chart))
}

func (s *Server) handleResonantWeather(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	birth, here, err := req.inputs()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rw, err := s.resonance.ResonantWeather(r.Context(), birth, here)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := pipeline.FormatResonantWeather(rw)
	if s.writeResult(w, r, resp) {
		s.publish(r, domain.KindResonantWeather, birth, here, rw.Timestamp, resp)
	}
}

func (s *Server) handleFullReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	birth, here, err := req.inputs()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fr, err := s.resonance.FullReading(r.Context(), birth, here)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := pipeline.FormatFullReading(fr)
	if s.writeResult(w, r, resp) {
		s.publish(r, domain.KindFullReading, birth, here, fr.Timestamp, resp)
	}
}

// publish hands a successful reading to the event sink, if one is configured.
func (s *Server) publish(r *http.Request, kind string, birth domain.BirthData, here domain.Location, at time.Time, payload any) {
	if s.events == nil {
		return
	}
	ev, err := domain.NewReadingEvent(kind, birth, here, at, payload)
	if err != nil {
		s.logger.WarnContext(r.Context(), "reading event not built", "kind", kind, "error", err)
		return
	}
	s.events.Enqueue(ev)
}

// decodeBody reads a single JSON object into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr):
			return invalid("%s: expected %s", typeErr.Field, typeErr.Type)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return invalid("%s", strings.TrimPrefix(err.Error(), "json: "))
		case errors.As(err, &maxErr):
			return &requestError{status: http.StatusRequestEntityTooLarge, detail: "request body too large"}
		case errors.Is(err, io.EOF):
			return &requestError{status: http.StatusBadRequest, detail: "request body is empty"}
		default:
			return &requestError{status: http.StatusBadRequest, detail: "malformed JSON: " + err.Error()}
		}
	}
	if dec.More() {
		return &requestError{status: http.StatusBadRequest, detail: "request body must contain a single JSON object"}
	}
	return nil
}

// writeError maps an error to its response: request errors carry their own
// status, input errors are 422, everything else is a 500 with the message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeDetail(w, reqErr.status, reqErr.detail)
	case domain.IsInputError(err):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

// writeResult encodes v before writing so an encoding failure still yields a
// clean 500. It reports whether the response was written successfully.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("encode response: %w", err))
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(data, '\n')) //nolint:errcheck // client may have gone away
	return true
}
