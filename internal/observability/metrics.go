package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// resonance service.
type Metrics struct {
	// Resonance computations.
	Computations    *prometheus.CounterVec   // labels: kind={snapshot,natal_chart,resonant_weather,full_reading}, outcome={success,error}
	ComputeDuration *prometheus.HistogramVec // labels: kind

	// Ephemeris cache.
	EphemerisCache *prometheus.CounterVec // labels: op={positions,houses}, result={hit,miss}

	// HTTP boundary.
	HTTPRequests *prometheus.CounterVec   // labels: route, status
	HTTPDuration *prometheus.HistogramVec // labels: route
	RateLimited  prometheus.Counter

	// Reading event publishing.
	EventsPublished  prometheus.Counter
	EventsDropped    prometheus.Counter
	PublishErrors    prometheus.Counter
	PublisherRunning prometheus.Gauge
	PublishBatchSize prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "computations_total",
			Help:      "Resonance computations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ars",
			Name:      "computation_duration_seconds",
			Help:      "Duration of a complete resonance computation, ephemeris included.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		EphemerisCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "ephemeris_cache_total",
			Help:      "Ephemeris cache lookups by operation and result.",
		}, []string{"op", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ars",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "reading_events_published_total",
			Help:      "Reading events written to the event topic.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "reading_events_dropped_total",
			Help:      "Reading events discarded because the buffer was full or the publisher stopped.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ars",
			Name:      "reading_publish_errors_total",
			Help:      "Failed batch writes to the event topic.",
		}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ars",
			Name:      "publisher_running",
			Help:      "1 when the reading publisher is active, 0 when shut down.",
		}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ars",
			Name:      "publish_batch_size",
			Help:      "Number of reading events per batch write.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
	}

	prometheus.MustRegister(
		m.Computations,
		m.ComputeDuration,
		m.EphemerisCache,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RateLimited,
		m.EventsPublished,
		m.EventsDropped,
		m.PublishErrors,
		m.PublisherRunning,
		m.PublishBatchSize,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Computations:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ars", Name: "computations_total"}, []string{"kind", "outcome"}),
		ComputeDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "ars", Name: "computation_duration_seconds"}, []string{"kind"}),
		EphemerisCache:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ars", Name: "ephemeris_cache_total"}, []string{"op", "result"}),
		HTTPRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ars", Name: "http_requests_total"}, []string{"route", "status"}),
		HTTPDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "ars", Name: "http_request_duration_seconds"}, []string{"route"}),
		RateLimited:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ars", Name: "http_rate_limited_total"}),
		EventsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ars", Name: "reading_events_published_total"}),
		EventsDropped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ars", Name: "reading_events_dropped_total"}),
		PublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ars", Name: "reading_publish_errors_total"}),
		PublisherRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ars", Name: "publisher_running"}),
		PublishBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "ars", Name: "publish_batch_size"}),
	}
}
