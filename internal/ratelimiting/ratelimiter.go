package ratelimiting

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Buckets of clients that have been quiet for this long are dropped
const idleBucketTTL = 30 * time.Minute

type RateLimiter interface {
	// Consume takes a token from the bucket of key. When the bucket is empty
	// nothing is taken and retryAfter is the time until a token is available.
	Consume(key string) (allowed bool, retryAfter time.Duration)
}

type RefillPerSecond float64
type BurstSize int

type tokenBucketRateLimiter struct {
	limiterByKey *ttlcache.Cache[string, *rate.Limiter]
	limit        rate.Limit
	burst        int

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func (rateLimiter *tokenBucketRateLimiter) sweepIdle(now time.Time) {
	rateLimiter.sweepMu.Lock()
	defer rateLimiter.sweepMu.Unlock()

	if now.Sub(rateLimiter.lastSweep) < idleBucketTTL {
		return
	}
	rateLimiter.lastSweep = now
	rateLimiter.limiterByKey.DeleteExpired()
}

func (rateLimiter *tokenBucketRateLimiter) Consume(key string) (bool, time.Duration) {
	now := time.Now()
	rateLimiter.sweepIdle(now)

	item, _ := rateLimiter.limiterByKey.GetOrSetFunc(key, func() *rate.Limiter {
		return rate.NewLimiter(rateLimiter.limit, rateLimiter.burst)
	})

	reservation := item.Value().ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// NewTokenBucketRateLimiter keeps one bucket per key.
// Idle buckets are swept out by Consume, at most once per idleBucketTTL.
func NewTokenBucketRateLimiter(refillPerSecond RefillPerSecond, burstSize BurstSize) RateLimiter {
	return &tokenBucketRateLimiter{
		limiterByKey: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](idleBucketTTL),
		),
		limit:     rate.Limit(refillPerSecond),
		burst:     int(burstSize),
		lastSweep: time.Now(),
	}
}

type RequestRateLimiter interface {
	Consume(r *http.Request) (allowed bool, retryAfter time.Duration)
	KeyFor(r *http.Request) string
}

type requestBasedRateLimiter struct {
	limiter RateLimiter
	keyFunc func(r *http.Request) string
}

func (rateLimiter *requestBasedRateLimiter) Consume(r *http.Request) (bool, time.Duration) {
	return rateLimiter.limiter.Consume(rateLimiter.keyFunc(r))
}

func (rateLimiter *requestBasedRateLimiter) KeyFor(r *http.Request) string {
	return rateLimiter.keyFunc(r)
}

func NewRequestBasedRateLimiter(limiter RateLimiter, keyFunc func(r *http.Request) string) RequestRateLimiter {
	return &requestBasedRateLimiter{
		limiter: limiter,
		keyFunc: keyFunc,
	}
}

// IPKeyFunc buckets requests by the address of the connecting client
func IPKeyFunc(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// No port
		host = r.RemoteAddr
	}

	return fmt.Sprintf("ip: %s", host)
}
