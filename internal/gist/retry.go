package gist

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig controls the retry executor's schedule.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig matches the transport's production schedule:
// three retries starting at one second, doubling, capped at ten.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}
}

// RetryableError is the default predicate for WithRetry: it retries
// only *Error values whose Retryable method says so.
func RetryableError(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Retryable()
	}

	return false
}

// jitterFraction bounds the random jitter added to each delay to 10%
// of the computed backoff, so simultaneous clients fan out without
// stretching the schedule noticeably.
const jitterFraction = 0.1

// WithRetry runs op, re-attempting while the caller-supplied predicate
// accepts the error and the attempt budget lasts. The delay before
// attempt n is min(MaxDelay, BaseDelay x Multiplier^n) plus bounded
// jitter, unless the error advertises its own delay (Retry-After).
// It returns the first success or the last error once retries are
// exhausted; ctx cancellation interrupts the sleep.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, retryable func(error) bool, op func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= cfg.MaxRetries || !retryable(err) {
			return zero, err
		}

		delay := backoffDelay(cfg, attempt)

		var ge *Error
		if errors.As(err, &ge) {
			if advertised := ge.RetryDelay(); advertised > 0 {
				delay = advertised
			}
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// backoffDelay computes the schedule delay for the given attempt,
// including jitter.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= cfg.Multiplier
	}

	if limit := float64(cfg.MaxDelay); delay > limit {
		delay = limit
	}

	jitter := rand.Float64() * jitterFraction * delay

	return time.Duration(delay + jitter)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
