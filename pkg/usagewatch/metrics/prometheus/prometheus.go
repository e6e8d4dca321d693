package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements usagewatch.Metrics using Prometheus.
type Metrics struct {
	refreshTotal       *prometheus.CounterVec
	refreshDuration    *prometheus.HistogramVec
	retryAttemptsTotal *prometheus.CounterVec
	cacheHitsTotal     *prometheus.CounterVec
	cacheMissesTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		refreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Total number of refresh cycles by outcome.",
		}, []string{"outcome"}),

		refreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Latency of refresh cycles.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		retryAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Total attempts of retried upstream calls.",
		}, []string{"operation", "success"}),

		cacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		}, []string{"key"}),

		cacheMissesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		}, []string{"key"}),

		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total notification attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// DefaultMetrics creates a metrics implementation registered on the
// default Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}

func (m *Metrics) RecordRefresh(outcome string, duration time.Duration) {
	m.refreshTotal.WithLabelValues(outcome).Inc()
	m.refreshDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordRetryAttempt(operation string, attempt int, success bool) {
	m.retryAttemptsTotal.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
}

func (m *Metrics) RecordCacheHit(key string) {
	m.cacheHitsTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) RecordCacheMiss(key string) {
	m.cacheMissesTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) RecordNotification(outcome string) {
	m.notificationsTotal.WithLabelValues(outcome).Inc()
}
