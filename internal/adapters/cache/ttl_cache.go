package cache

import (
	"context"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/jellydator/ttlcache/v3"
)

const (
	// A claimed key that is never set is released after this long
	claimTTL = 1 * time.Minute

	claimPollInterval = 50 * time.Millisecond
)

type ttlCacheEntry[T any] struct {
	data  T
	valid bool
}

// TTLCache is the in-process cache tier. Every entry carries its own TTL and
// is never returned after it has expired.
type TTLCache[T any] struct {
	cache *ttlcache.Cache[string, ttlCacheEntry[T]]
	// Serializes read-then-write sequences on the same key
	mu sync.Mutex
}

type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

func NewTTLCache[T any](defaultTTL time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		cache: ttlcache.New[string, ttlCacheEntry[T]](
			ttlcache.WithTTL[string, ttlCacheEntry[T]](defaultTTL),
			ttlcache.WithDisableTouchOnHit[string, ttlCacheEntry[T]](),
		),
	}
}

func (c *TTLCache[T]) Set(key string, data T, ttl time.Duration) {
	c.set(key, data, ttl)
}

func (c *TTLCache[T]) SetForKind(key string, data T, kind domain.ResourceKind) {
	c.set(key, data, kind.TTL())
}

// Get returns the value stored under key. An expired entry is removed.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var empty T
	item := c.cache.Get(key)
	if item == nil || item.IsExpired() {
		c.cache.Delete(key)
		return empty, false
	}
	if !item.Value().valid {
		// Claimed by a creator that has not finished yet
		return empty, false
	}
	return item.Value().data, true
}

func (c *TTLCache[T]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *TTLCache[T]) Invalidate(key string) {
	c.delete(key)
}

// InvalidatePattern removes every key matching pattern and returns how many were removed
func (c *TTLCache[T]) InvalidatePattern(pattern *regexp.Regexp) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.cache.Keys() {
		if pattern.MatchString(key) {
			c.cache.Delete(key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.DeleteAll()
}

// Cleanup removes all expired entries and returns how many there were
func (c *TTLCache[T]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Len already leaves out expired items, so they are counted before the sweep
	expired := 0
	for _, item := range c.cache.Items() {
		if item.IsExpired() {
			expired++
		}
	}
	c.cache.DeleteExpired()
	return expired
}

// StartCleanup runs Cleanup every interval until ctx is done
func (c *TTLCache[T]) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Cleanup(); removed > 0 {
				logging.FromContext(ctx).InfoContext(ctx, "Removed expired cache entries", "count", removed)
			}
		}
	}
}

// Stats lists the keys that can currently be served
func (c *TTLCache[T]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := []string{}
	for key, item := range c.cache.Items() {
		if item.IsExpired() || !item.Value().valid {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return CacheStats{
		Size: len(keys),
		Keys: keys,
	}
}

func (c *TTLCache[T]) getOrClaim(key string) hitResult[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := c.cache.Get(key)
	if item != nil && !item.IsExpired() {
		return hitResult[T]{
			data:    item.Value().data,
			valid:   item.Value().valid,
			claimed: false,
		}
	}

	c.cache.Set(key, ttlCacheEntry[T]{valid: false}, claimTTL)
	return hitResult[T]{
		valid:   false,
		claimed: true,
	}
}

func (c *TTLCache[T]) set(key string, data T, ttl time.Duration) {
	if ttl <= 0 {
		// ttlcache treats 0 as "use the default TTL"
		c.delete(key)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Set(key, ttlCacheEntry[T]{data: data, valid: true}, ttl)
}

func (c *TTLCache[T]) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(key)
}

func (c *TTLCache[T]) wait() {
	time.Sleep(claimPollInterval)
}
