// Package metrics exposes Prometheus collectors for the HTTP API and the
// account workflows.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	tokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clientkeeper_tokens_issued_total",
		Help: "Session and confirmation tokens issued.",
	})

	tokenRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientkeeper_token_rejections_total",
			Help: "Rejected bearer tokens by reason.",
		},
		[]string{"reason"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientkeeper_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	rollbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientkeeper_rollbacks_total",
			Help: "Compensating rollbacks by operation and result.",
		},
		[]string{"operation", "result"},
	)
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			tokensIssued, tokenRejections, logins, rollbacks,
		)
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func TokenIssued() {
	tokensIssued.Inc()
}

func TokenRejected(reason string) {
	tokenRejections.WithLabelValues(reason).Inc()
}

func Login(outcome string) {
	logins.WithLabelValues(outcome).Inc()
}

// Rollback records a compensating rollback; partial is true when some
// compensation failed.
func Rollback(operation string, partial bool) {
	result := "complete"
	if partial {
		result = "partial"
	}
	rollbacks.WithLabelValues(operation, result).Inc()
}

// Instrument measures request count, latency and concurrency. The path label
// is the matched route pattern so ids in URLs do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
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
