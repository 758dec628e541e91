package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

type Config struct {
	// MaxAttempts includes the first call. Values <= 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before the first retry, doubled for every following one
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter of 0.2 means +-20% of the computed delay
	Jitter float64

	// Retryable decides whether a failed attempt is repeated. nil retries nothing.
	Retryable func(error) bool

	// OnRetry is called before waiting for the next attempt
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Do calls fn until it succeeds, returns a non-retryable error or runs out of attempts.
// The last error is returned as-is so callers can inspect it with errors.As.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := range attempts {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if i == attempts-1 {
			return zero, err
		}

		if cfg.Retryable == nil || !cfg.Retryable(err) {
			return zero, err
		}

		delay := Backoff(cfg, i)
		if cfg.OnRetry != nil {
			cfg.OnRetry(i+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, nil
}

// Backoff is the delay after the given 0-indexed attempt, capped at cfg.MaxDelay
func Backoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if maxDelay := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	if cfg.Jitter > 0 {
		delay += delay * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
