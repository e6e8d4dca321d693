package usagewatch

import "time"

// Metrics defines the interface for tracking sync operations and performance.
type Metrics interface {
	// RecordRefresh records the outcome ("ok", "partial", "failed",
	// "no_credential") and duration of a refresh cycle.
	RecordRefresh(outcome string, duration time.Duration)

	// RecordRetryAttempt records a single attempt of a retried upstream call.
	RecordRetryAttempt(operation string, attempt int, success bool)

	// RecordCacheHit records a cache hit for a cache key.
	RecordCacheHit(key string)

	// RecordCacheMiss records a cache miss for a cache key.
	RecordCacheMiss(key string)

	// RecordNotification records the outcome of a notification attempt
	// ("sent", "delivery_failed", "not_ready").
	RecordNotification(outcome string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordRefresh(outcome string, duration time.Duration)         {}
func (n *NoopMetrics) RecordRetryAttempt(operation string, attempt int, ok bool)    {}
func (n *NoopMetrics) RecordCacheHit(key string)                                    {}
func (n *NoopMetrics) RecordCacheMiss(key string)                                   {}
func (n *NoopMetrics) RecordNotification(outcome string)                            {}
