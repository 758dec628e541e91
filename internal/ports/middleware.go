package ports

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/ratelimiting"
)

func NewRateLimitMiddleware(
	rateLimiter ratelimiting.RequestRateLimiter,
	onLimitExceeded func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration),
) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if allowed, retryAfter := rateLimiter.Consume(r); !allowed {
				onLimitExceeded(w, r, retryAfter)
				return
			}

			next(w, r)
		}
	}
}

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}

func newIPRateLimitMiddleware(refillPerSecond ratelimiting.RefillPerSecond, burstSize ratelimiting.BurstSize) func(http.HandlerFunc) http.HandlerFunc {
	ipLimiter := ratelimiting.NewTokenBucketRateLimiter(refillPerSecond, burstSize)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
		ctx := r.Context()
		logging.FromContext(ctx).InfoContext(ctx, "Rate limit exceeded", "statusCode", http.StatusTooManyRequests, "key", ipRateLimiter.KeyFor(r), "retryAfter", retryAfter.String())
		if retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		}
		writeError(ctx, w, "rate limit exceeded", http.StatusTooManyRequests)
	}

	return NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded)
}
