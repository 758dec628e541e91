package ratelimiting

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out upstream calls made by a sync run
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one call per interval after an initial burst.
// A zero interval disables pacing.
func NewPacer(interval time.Duration, burst int) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Wait blocks until the next call may be made or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for pacer: %w", err)
	}
	return nil
}
