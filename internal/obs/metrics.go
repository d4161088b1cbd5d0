package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
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

	complaintsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Complaints submitted, labelled by category and priority.",
		},
		[]string{"category", "priority"},
	)

	complaintStatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaint_status_updates_total",
			Help: "Admin status transitions applied to complaints.",
		},
		[]string{"status"},
	)

	accessDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_denied_total",
		Help: "Requests denied by the route guard.",
	})

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready, 0 otherwise.",
	})
)

// Init registers metrics in the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		complaintsSubmitted,
		complaintStatusUpdates,
		accessDenied,
		ready,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// CountComplaintSubmitted records a submitted complaint.
func CountComplaintSubmitted(category, priority string) {
	complaintsSubmitted.WithLabelValues(category, priority).Inc()
}

// CountStatusUpdate records an admin-directed status transition.
func CountStatusUpdate(status string) {
	complaintStatusUpdates.WithLabelValues(status).Inc()
}

// CountAccessDenied records a route-guard denial.
func CountAccessDenied() {
	accessDenied.Inc()
}

// CanonicalPath collapses per-resource path segments so metric labels stay
// bounded regardless of how many complaints exist.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	// /v1/complaints/{id}/status and /v1/complaints/{id}
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "complaints" {
		switch {
		case len(parts) == 4 && parts[3] != "my" && parts[3] != "stats" && parts[3] != "":
			return "/v1/complaints/:id"
		case len(parts) == 5 && parts[4] == "status":
			return "/v1/complaints/:id/status"
		}
	}
	return path
}

// Instrument wraps the handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
