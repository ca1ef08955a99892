package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds how provider calls are retried.
//
// Zero or negative values fall back: MaxRetries to 0 (one attempt),
// BaseDelay to 1ms, MaxDelay to BaseDelay. ShouldRetry defaults to
// IsTransient, so only rate limits, timeouts, 5xx and network failures
// are tried again.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	ShouldRetry func(error) bool

	// OnRetry, if set, is called before each wait with the 1-based attempt
	// that just failed, its error, and the delay about to be slept.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c RetryConfig) withDefaults() RetryConfig {
	c.MaxRetries = max(c.MaxRetries, 0)
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = IsTransient
	}
	return c
}

// Retry calls fn until it succeeds, fails permanently, or MaxRetries retries
// are spent. The wait doubles after each retry up to MaxDelay.
//
// A permanent error is returned as is. When retries run out, the last error
// is wrapped with the attempt count, so its sentinel still matches with
// errors.Is. A cancelled ctx stops before the next attempt and returns
// ctx.Err() wrapped with the last failure's message.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		if attempt > 1 {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt-1, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, fmt.Errorf("retry interrupted after %v: %w", lastErr, err)
			}
			delay = min(delay*2, cfg.MaxDelay)
		} else if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !cfg.ShouldRetry(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("gave up after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

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
