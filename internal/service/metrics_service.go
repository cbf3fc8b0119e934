package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/cleanops-client/internal/models"
)

// Transition outcomes recorded by the stores.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// MetricsService encapsulates Prometheus instrumentation of the client and
// keeps lightweight counters for snapshots. A nil *MetricsService is a no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	authenticated   prometheus.Gauge
	reconcileRuns   *prometheus.CounterVec
	reconcileTime   prometheus.Histogram

	requestCount         uint64
	requestFailures      uint64
	requestDurationTotal uint64
	transitionCount      uint64
	reconcileCount       uint64
	authenticatedFlag    uint32
}

// NewMetricsService registers the client collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cleanops_client_request_duration_seconds",
		Help:    "Duration of API requests issued by the client",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cleanops_client_requests_total",
		Help: "Total number of API requests issued by the client",
	}, []string{"method", "route", "status"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cleanops_client_transitions_total",
		Help: "Assignment transitions attempted through the stores",
	}, []string{"action", "outcome"})

	authenticated := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cleanops_client_session_authenticated",
		Help: "1 when the session holds both a token and an identity",
	})

	reconcileRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cleanops_client_reconcile_runs_total",
		Help: "Periodic reconcile runs by result",
	}, []string{"result"})

	reconcileTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cleanops_client_reconcile_duration_seconds",
		Help:    "Duration of periodic reconcile runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, authenticated, reconcileRuns, reconcileTime, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitions:     transitions,
		authenticated:   authenticated,
		reconcileRuns:   reconcileRuns,
		reconcileTime:   reconcileTime,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveAPIRequest records one outgoing request. Status zero marks a
// transport failure.
func (m *MetricsService) ObserveAPIRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	route := RouteLabel(path)
	m.requestDuration.WithLabelValues(method, route, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
	if status == 0 || status >= http.StatusBadRequest {
		atomic.AddUint64(&m.requestFailures, 1)
	}
}

// RecordTransition counts a store transition attempt.
func (m *MetricsService) RecordTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// SetAuthenticated mirrors the session state.
func (m *MetricsService) SetAuthenticated(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.authenticated.Set(1)
		atomic.StoreUint32(&m.authenticatedFlag, 1)
		return
	}
	m.authenticated.Set(0)
	atomic.StoreUint32(&m.authenticatedFlag, 0)
}

// ObserveReconcile records one reconcile run.
func (m *MetricsService) ObserveReconcile(err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reconcileRuns.WithLabelValues(result).Inc()
	m.reconcileTime.Observe(duration.Seconds())
	atomic.AddUint64(&m.reconcileCount, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() models.ClientMetrics {
	if m == nil {
		return models.ClientMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.ClientMetrics{
		RequestsTotal:            requests,
		RequestFailures:          atomic.LoadUint64(&m.requestFailures),
		AverageRequestDurationMs: avgRequestMs,
		TransitionsTotal:         atomic.LoadUint64(&m.transitionCount),
		ReconcileRuns:            atomic.LoadUint64(&m.reconcileCount),
		Authenticated:            atomic.LoadUint32(&m.authenticatedFlag) == 1,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

// RouteLabel replaces UUID path segments with ":id" to bound label cardinality.
func RouteLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if _, err := uuid.Parse(segment); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
