package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
	"github.com/couchcryptid/astro-resonance-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Resonance runs the resonance computations behind the /v1 routes.
type Resonance interface {
	CurrentSnapshot(ctx context.Context) (pipeline.Snapshot, error)
	NatalChart(ctx context.Context, birth domain.BirthData) (pipeline.NatalChart, error)
	ResonantWeather(ctx context.Context, birth domain.BirthData, here domain.Location) (pipeline.ResonantWeather, error)
	FullReading(ctx context.Context, birth domain.BirthData, here domain.Location) (pipeline.FullReading, error)
}

// EventSink accepts reading events for asynchronous publishing.
type EventSink interface {
	Enqueue(ev domain.ReadingEvent) bool
}

// Options configures a Server.
type Options struct {
	Addr           string
	RateLimitRPS   float64 // <= 0 disables rate limiting
	RateLimitBurst int
	Events         EventSink // optional
}

// Server exposes the resonance API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	resonance  Resonance
	events     EventSink
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the /v1 routes and the /healthz,
// /readyz, and /metrics operational routes.
func NewServer(opts Options, svc Resonance, ready ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		resonance: svc,
		events:    opts.Events,
		logger:    logger,
		metrics:   metrics,
	}

	s.route(mux, "GET /{$}", s.handleRoot)
	s.route(mux, "GET /v1/current_weather", s.handleCurrentWeather)
	s.route(mux, "POST /v1/current_weather", s.handleCurrentWeather)
	s.route(mux, "POST /v1/natal_chart", s.handleNatalChart)
	s.route(mux, "POST /v1/resonant_weather", s.handleResonantWeather)
	s.route(mux, "POST /v1/full_reading", s.handleFullReading)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	limiter := newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute)

	var handler http.Handler = mux
	handler = rateLimit(limiter, metrics, handler)
	handler = requestLogging(logger, handler)
	handler = requestID(handler)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// route registers an API handler wrapped with per-route request metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, instrument(pattern, s.metrics, h))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
