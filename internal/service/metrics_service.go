package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the console.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	forcedLogouts   prometheus.Counter
	sessionEvents   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors. activeSessions, when
// set, is sampled on every scrape.
func NewMetricsService(activeSessions func() int) *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of calls to the course-management API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	backendTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Total calls to the course-management API",
	}, []string{"method", "route", "status"})

	forcedLogouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_forced_logouts_total",
		Help: "Sessions ended because the backend rejected the token",
	})

	sessionEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_session_events_total",
		Help: "Session lifecycle events",
	}, []string{"event"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, backendDuration, backendTotal, forcedLogouts, sessionEvents, goroutines)

	if activeSessions != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "console_active_sessions",
			Help: "Sessions with live in-memory state",
		}, func() float64 {
			return float64(activeSessions())
		}))
	}

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		backendDuration: backendDuration,
		backendTotal:    backendTotal,
		forcedLogouts:   forcedLogouts,
		sessionEvents:   sessionEvents,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records console request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBackendCall records one call to the backend API.
func (m *MetricsService) ObserveBackendCall(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.backendTotal.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
}

// ObserveSessionEvent counts session lifecycle events.
func (m *MetricsService) ObserveSessionEvent(event SessionEvent) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(string(event.Kind)).Inc()
	if event.Kind == SessionExpired {
		m.forcedLogouts.Inc()
	}
}
