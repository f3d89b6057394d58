// Package metrics provides Prometheus metrics for the practice service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gateway request outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeFailure = "failure"
)

const defaultNamespace = "sign2me"

// Manager owns the service metrics. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	gatewayRequests  *prometheus.CounterVec
	gatewayDropped   prometheus.Counter
	gatewayLatency   *prometheus.HistogramVec
	framesSkipped    prometheus.Counter
	transitions      *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	staleResults     prometheus.Counter
	feedbackDebounce prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewManager creates a metrics manager with its own registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		histogramBuckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)

	m.gatewayRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Classification requests by delivery mode and outcome.",
	}, []string{"mode", "outcome"})

	m.gatewayDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gateway",
		Name:      "dropped_submissions_total",
		Help:      "Feature vectors dropped because a request was already in flight.",
	})

	m.gatewayLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Classification request latency.",
		Buckets:   m.histogramBuckets,
	}, []string{"mode"})

	m.framesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "frames_skipped_total",
		Help:      "Frames that produced no feature vector or were superseded before processing.",
	})

	m.transitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Session status changes by resulting status.",
	}, []string{"status"})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Currently mounted practice sessions.",
	})

	m.staleResults = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "stale_results_total",
		Help:      "Results discarded because they answered a previous target.",
	})

	m.feedbackDebounce = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "session",
		Name:      "feedback_suppressed_total",
		Help:      "Service feedback texts suppressed by the cool-down window.",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	m.httpLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	return m
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordGatewayRequest records one completed classification request.
func (m *Manager) RecordGatewayRequest(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(mode, outcome).Inc()
	m.gatewayLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordDroppedSubmission counts a submission dropped by the in-flight guard.
func (m *Manager) RecordDroppedSubmission() {
	if m == nil {
		return
	}
	m.gatewayDropped.Inc()
}

// RecordSkippedFrame counts a frame that could not be normalized.
func (m *Manager) RecordSkippedFrame() {
	if m == nil {
		return
	}
	m.framesSkipped.Inc()
}

// RecordTransition counts a status change.
func (m *Manager) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// RecordStaleResult counts a result discarded for answering an old target.
func (m *Manager) RecordStaleResult() {
	if m == nil {
		return
	}
	m.staleResults.Inc()
}

// RecordSuppressedFeedback counts service feedback held back by the cool-down.
func (m *Manager) RecordSuppressedFeedback() {
	if m == nil {
		return
	}
	m.feedbackDebounce.Inc()
}

// SessionOpened increments the active sessions gauge.
func (m *Manager) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *Manager) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// RecordHTTPRequest records one served HTTP request.
func (m *Manager) RecordHTTPRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}
