package usagewatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

func testRetrier() *usagewatch.Retrier {
	return usagewatch.NewRetrier(usagewatch.Config{
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		AttemptTimeout: 100 * time.Millisecond,
	})
}

func TestRetrier_SuccessFirstAttempt(t *testing.T) {
	retrier := testRetrier()

	var calls int32
	err := retrier.Do(context.Background(), "op", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "no further attempts after success")
}

func TestRetrier_SuccessShortcut(t *testing.T) {
	retrier := testRetrier()

	var calls int32
	value, err := usagewatch.RetryValue(context.Background(), retrier, "op", func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) < 2 {
			return "", errors.New("transient")
		}
		return "second", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "second", value)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestRetrier_ExhaustionMakesBoundedAttempts(t *testing.T) {
	retrier := testRetrier()

	upstreamErr := errors.New("upstream down")
	var calls int32
	err := retrier.Do(context.Background(), "op", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return upstreamErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, upstreamErr, "last observed error propagates")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "exactly MaxRetries+1 attempts")
}

func TestRetrier_AttemptTimeout(t *testing.T) {
	retrier := usagewatch.NewRetrier(usagewatch.Config{
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		AttemptTimeout: 10 * time.Millisecond,
	})

	var cancelled int32
	err := retrier.Do(context.Background(), "op", func(ctx context.Context) error {
		// Honor cancellation like a real transport would.
		<-ctx.Done()
		atomic.AddInt32(&cancelled, 1)
		time.Sleep(time.Millisecond)
		return ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, usagewatch.ErrAttemptTimeout)
	// Every attempt's context was cancelled by its deadline.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&cancelled) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestRetrier_ContextCancellationStopsRetrying(t *testing.T) {
	retrier := usagewatch.NewRetrier(usagewatch.Config{
		MaxRetries:     2,
		RetryDelay:     time.Hour, // would hang if the delay ignored ctx
		AttemptTimeout: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	done := make(chan error, 1)
	go func() {
		done <- retrier.Do(ctx, "op", func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("transient")
		})
	}()

	// Let the first attempt fail, then cancel during the delay.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retrier did not observe cancellation")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
