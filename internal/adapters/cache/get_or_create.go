package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/esportsync/internal/logging"
)

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

// Cache is the claim/wait protocol GetOrCreate uses to deduplicate concurrent misses
type Cache[T any] interface {
	getOrClaim(key string) hitResult[T]
	set(key string, data T, ttl time.Duration)
	delete(key string)
	wait()
}

// GetOrCreate returns the cached value for key, or calls create to produce it.
// Only one caller creates a given key at a time, the others wait for its result.
// create returns the value together with the time it should be cached for.
//
// Returns data, created, error
func GetOrCreate[T any](ctx context.Context, cache Cache[T], key string, create func() (T, time.Duration, error)) (T, bool, error) {
	// Clean up the cache if we claim an entry, but don't set it
	// This allows other callers to try again
	claimed := false
	set := false
	defer func() {
		if claimed && !set {
			cache.delete(key)
		}
	}()

	for {
		result := cache.getOrClaim(key)

		if result.claimed {
			claimed = true

			logging.FromContext(ctx).InfoContext(ctx, "Getting cached resource", "key", key, "cache", "miss")

			data, ttl, err := create()
			if err != nil {
				var empty T
				return empty, false, fmt.Errorf("failed to create cache entry: %w", err)
			}

			if ttl > 0 {
				cache.set(key, data, ttl)
				set = true
			}

			return data, true, nil
		}

		if result.valid {
			logging.FromContext(ctx).InfoContext(ctx, "Getting cached resource", "key", key, "cache", "hit")
			return result.data, false, nil
		}

		if err := ctx.Err(); err != nil {
			var empty T
			return empty, false, fmt.Errorf("gave up waiting for cache entry %s: %w", key, err)
		}

		logging.FromContext(ctx).InfoContext(ctx, "Waiting for cache", "key", key)
		cache.wait()
	}
}
