package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Guard metrics
var (
	RateLimitRefusals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostguard_rate_limit_refusals_total",
			Help: "Attempts refused by the sliding-window rate limiter.",
		},
		[]string{"action"},
	)

	LoginOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostguard_login_outcomes_total",
			Help: "Terminal outcomes of secure login attempts.",
		},
		[]string{"outcome"},
	)

	SecurityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostguard_security_events_total",
			Help: "Security events appended to the in-memory ring.",
		},
		[]string{"type"},
	)

	MirrorPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostguard_event_mirror_published_total",
		Help: "Security events successfully mirrored to the store.",
	})

	MirrorDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostguard_event_mirror_dropped_total",
		Help: "Security events dropped after exhausting mirror retries or overflowing the queue.",
	})

	ForcedLogouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostguard_forced_logouts_total",
			Help: "Sessions ended by the expiry monitor.",
		},
		[]string{"reason"},
	)

	EscalationActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostguard_escalation_active",
		Help: "1 while tightened rate-limit policies are in effect.",
	})
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostguard_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostguard_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostguard_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers all metrics with the default registry
func Init() {
	prometheus.MustRegister(
		RateLimitRefusals, LoginOutcomes, SecurityEvents,
		MirrorPublished, MirrorDropped, ForcedLogouts, EscalationActive,
		httpInFlight, httpRequestsTotal, httpRequestDuration,
	)
}

// Handler exposes the Prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
