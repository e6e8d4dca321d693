package usagewatch

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
)

// Retrier executes volatile upstream calls with a bounded number of
// attempts, a fixed inter-attempt delay, and a per-attempt timeout. The
// retry policy is deliberately fixed and small; it wraps exactly the two
// calls whose upstream data changes too often to cache.
type Retrier struct {
	maxRetries     int
	delay          time.Duration
	attemptTimeout time.Duration
	logger         Logger
	metrics        Metrics
	clock          quartz.Clock
}

// NewRetrier creates a retry executor from config defaults: MaxRetries 2
// (3 total attempts), RetryDelay 100ms, AttemptTimeout 10s.
func NewRetrier(config Config) *Retrier {
	config = config.withDefaults()
	return &Retrier{
		maxRetries:     config.MaxRetries,
		delay:          config.RetryDelay,
		attemptTimeout: config.AttemptTimeout,
		logger:         config.Logger,
		metrics:        config.Metrics,
		clock:          config.Clock,
	}
}

// Do runs fn up to maxRetries+1 times. Each attempt receives a context
// with the per-attempt deadline so a timeout genuinely cancels the
// in-flight call; if fn ignores cancellation its eventual result is
// discarded. On success Do returns immediately. On exhaustion it returns
// the last observed error, or ErrAttemptsExhausted if no attempt produced
// one.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxRetries+1; attempt++ {
		err := r.attempt(ctx, fn)
		r.metrics.RecordRetryAttempt(operation, attempt, err == nil)
		if err == nil {
			return nil
		}
		lastErr = err

		r.logger.Warn("upstream call failed",
			Field{Key: "operation", Value: operation},
			Field{Key: "attempt", Value: attempt},
			Field{Key: "error", Value: err.Error()},
		)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt <= r.maxRetries {
			if err := r.wait(ctx); err != nil {
				return err
			}
		}
	}

	if lastErr == nil {
		return fmt.Errorf("%s: %w", operation, ErrAttemptsExhausted)
	}
	return lastErr
}

// attempt races fn against the per-attempt timeout. The attempt context
// carries the deadline into fn; when the deadline fires first the attempt
// fails with ErrAttemptTimeout and the goroutine running fn is abandoned.
func (r *Retrier) attempt(ctx context.Context, fn func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(attemptCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %s", ErrAttemptTimeout, r.attemptTimeout)
	}
}

func (r *Retrier) wait(ctx context.Context) error {
	timer := r.clock.NewTimer(r.delay, "retry", "delay")
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryValue runs fn through r and returns its value on success.
func RetryValue[T any](ctx context.Context, r *Retrier, operation string, fn func(context.Context) (T, error)) (T, error) {
	var value T
	err := r.Do(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}
