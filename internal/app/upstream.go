package app

import (
	"context"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/retry"
)

type requestMonitor interface {
	CanMakeRequest(ctx context.Context) bool
	TrackRequest(ctx context.Context, responseTime time.Duration, isError bool)
}

var upstreamRetry = retry.Config{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    30 * time.Second,
	Jitter:      0.2,
	Retryable:   domain.IsRetryable,
}

// callUpstream gates every attempt on the hourly budget and reports it to the monitor
func callUpstream[T any](ctx context.Context, monitor requestMonitor, operation string, call func(ctx context.Context) (T, error)) (T, error) {
	cfg := upstreamRetry
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.FromContext(ctx).WarnContext(ctx, "Retrying upstream request", "operation", operation, "attempt", attempt, "delay", delay.String(), "error", err.Error())
	}

	return retry.Do(ctx, cfg, func(ctx context.Context) (T, error) {
		return trackedCall(ctx, monitor, call)
	})
}

func trackedCall[T any](ctx context.Context, monitor requestMonitor, call func(ctx context.Context) (T, error)) (T, error) {
	if !monitor.CanMakeRequest(ctx) {
		var empty T
		return empty, domain.ErrBudgetExhausted
	}

	return recordRequest(ctx, monitor, call)
}

// recordRequest reports the call to the monitor, also when it panics
func recordRequest[T any](ctx context.Context, monitor requestMonitor, call func(ctx context.Context) (T, error)) (data T, err error) {
	start := time.Now()
	completed := false
	defer func() {
		monitor.TrackRequest(ctx, time.Since(start), err != nil || !completed)
	}()

	data, err = call(ctx)
	completed = true
	return data, err
}
