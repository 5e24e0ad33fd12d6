// Package metrics exposes Prometheus collectors for the HTTP surface and the
// listing workflows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "estately"

// Outcome labels shared by the workflow counters.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeForbidden  = "forbidden"
	OutcomeFailed     = "failed"
)

// Metrics owns a private registry so tests can build as many as they like.
// Every recording method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	favorites     *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	uploadedBytes prometheus.Counter
	moderation    *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		favorites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorite_toggles_total",
			Help:      "Favorite toggles by result (added, removed, failed)",
		}, []string{"result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_submissions_total",
			Help:      "Property submissions by mode and outcome",
		}, []string{"mode", "outcome"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to the object bucket",
		}),
		moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_actions_total",
			Help:      "Admin moderation actions by action and outcome",
		}, []string{"action", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_compensations_total",
			Help:      "Objects deleted by compensation, by trigger (rollback, sweep)",
		}, []string{"trigger"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.favorites,
		m.submissions,
		m.uploadedBytes,
		m.moderation,
		m.compensations,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterGauge exposes a value read at scrape time, such as the number of
// connected SSE clients.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, which keeps path parameters out of the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// FavoriteToggled records a toggle result: "added", "removed" or "failed".
func (m *Metrics) FavoriteToggled(result string) {
	if m == nil {
		return
	}
	m.favorites.WithLabelValues(result).Inc()
}

// SubmissionFinished records a submission outcome; mode is "create" or "edit".
func (m *Metrics) SubmissionFinished(mode, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(mode, outcome).Inc()
}

// BytesUploaded adds n to the uploaded bytes counter.
func (m *Metrics) BytesUploaded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadedBytes.Add(float64(n))
}

// ModerationAction records an admin action.
func (m *Metrics) ModerationAction(action, outcome string) {
	if m == nil {
		return
	}
	m.moderation.WithLabelValues(action, outcome).Inc()
}

// ObjectsCompensated records objects removed by a rollback or the orphan sweep.
func (m *Metrics) ObjectsCompensated(trigger string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.compensations.WithLabelValues(trigger).Add(float64(n))
}
