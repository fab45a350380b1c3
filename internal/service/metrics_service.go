package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the attendance domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	checkinTotal    *prometheus.CounterVec
	tokensIssued    prometheus.Counter
	tokensRejected  *prometheus.CounterVec
	reconcileSize   prometheus.Histogram
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
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

	checkinTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_validations_total",
		Help: "Check-in validations by resulting status",
	}, []string{"status"})

	tokensIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkin_tokens_issued_total",
		Help: "Total check-in tokens issued",
	})

	tokensRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_rejections_total",
		Help: "Check-in rejections by reason code",
	}, []string{"reason"})

	reconcileSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_reconcile_occurrences",
		Help:    "Occurrences resolved per reconcile call",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, checkinTotal, tokensIssued, tokensRejected, reconcileSize, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		checkinTotal:    checkinTotal,
		tokensIssued:    tokensIssued,
		tokensRejected:  tokensRejected,
		reconcileSize:   reconcileSize,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveCheckIn counts a successful validation by resulting status.
func (m *MetricsService) ObserveCheckIn(status string) {
	if m == nil {
		return
	}
	m.checkinTotal.WithLabelValues(status).Inc()
}

// ObserveCheckInRejection counts a typed rejection.
func (m *MetricsService) ObserveCheckInRejection(reason string) {
	if m == nil {
		return
	}
	m.tokensRejected.WithLabelValues(reason).Inc()
}

// ObserveTokenIssued counts an issued token.
func (m *MetricsService) ObserveTokenIssued() {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
}

// ObserveReconcile records the size of a reconcile response.
func (m *MetricsService) ObserveReconcile(occurrences int) {
	if m == nil {
		return
	}
	m.reconcileSize.Observe(float64(occurrences))
}
