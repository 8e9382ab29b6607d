package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the lending
// API: request timing, cache behaviour and lending-domain counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	borrowsCreated  prometheus.Counter
	borrowsReturned prometheus.Counter
	penaltiesRaised prometheus.Counter
	resetDenied     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	borrowsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "borrows_created_total",
		Help: "Total equipment checkouts",
	})

	borrowsReturned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "borrows_returned_total",
		Help: "Total equipment returns",
	})

	penaltiesRaised := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "penalties_raised_total",
		Help: "Total penalties raised",
	})

	resetDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "password_reset_denied_total",
		Help: "Password reset requests denied by the rate limiter",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHitRatio, cacheHits, cacheMisses,
		borrowsCreated, borrowsReturned, penaltiesRaised, resetDenied, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		borrowsCreated:  borrowsCreated,
		borrowsReturned: borrowsReturned,
		penaltiesRaised: penaltiesRaised,
		resetDenied:     resetDenied,
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

// ObserveHTTPRequest records request timing and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss and refreshes the ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordBorrowCreated increments the checkout counter.
func (m *MetricsService) RecordBorrowCreated() {
	if m != nil {
		m.borrowsCreated.Inc()
	}
}

// RecordBorrowReturned increments the return counter.
func (m *MetricsService) RecordBorrowReturned() {
	if m != nil {
		m.borrowsReturned.Inc()
	}
}

// RecordPenaltyRaised increments the penalty counter.
func (m *MetricsService) RecordPenaltyRaised() {
	if m != nil {
		m.penaltiesRaised.Inc()
	}
}

// RecordResetDenied counts rate-limited reset requests.
func (m *MetricsService) RecordResetDenied() {
	if m != nil {
		m.resetDenied.Inc()
	}
}
