package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Amund211/esportsync/internal/adapters/cacherepository"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/reporting"
)

// DurableStore is the persistent cache tier
type DurableStore interface {
	Get(ctx context.Context, key string) (cacherepository.Entry, error)
	Set(ctx context.Context, entry cacherepository.Entry) error
	Invalidate(ctx context.Context, key string) error
	InvalidatePattern(ctx context.Context, pattern string) (int64, error)
}

// HitTracker is told about every cache lookup
type HitTracker interface {
	TrackCacheHit()
	TrackCacheMiss()
}

type noopTracker struct{}

func (noopTracker) TrackCacheHit()  {}
func (noopTracker) TrackCacheMiss() {}

// Tiered reads through the in-process tier into the durable tier.
// Values are stored in the durable tier as JSON.
type Tiered[T any] struct {
	memory  *TTLCache[T]
	durable DurableStore
	tracker HitTracker
	nowFunc func() time.Time
}

type TieredOption[T any] func(*Tiered[T])

func WithHitTracker[T any](tracker HitTracker) TieredOption[T] {
	return func(t *Tiered[T]) {
		t.tracker = tracker
	}
}

func WithTieredNowFunc[T any](nowFunc func() time.Time) TieredOption[T] {
	return func(t *Tiered[T]) {
		t.nowFunc = nowFunc
	}
}

func NewTiered[T any](memory *TTLCache[T], durable DurableStore, opts ...TieredOption[T]) *Tiered[T] {
	t := &Tiered[T]{
		memory:  memory,
		durable: durable,
		tracker: noopTracker{},
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tiered[T]) Memory() *TTLCache[T] {
	return t.memory
}

// Get checks the in-process tier, then the durable tier.
// A durable hit is promoted into memory for the rest of its lifetime.
func (t *Tiered[T]) Get(ctx context.Context, key string) (T, bool) {
	if data, ok := t.memory.Get(key); ok {
		t.tracker.TrackCacheHit()
		return data, true
	}

	data, remaining, ok := t.getDurable(ctx, key)
	if ok {
		t.memory.Set(key, data, remaining)
		t.tracker.TrackCacheHit()
		return data, true
	}

	t.tracker.TrackCacheMiss()
	var empty T
	return empty, false
}

// GetOrCreate returns the cached value for key, calling create on a miss in both tiers.
// Concurrent misses for the same key in this process share one call to create.
func (t *Tiered[T]) GetOrCreate(ctx context.Context, key string, scope domain.CacheScope, create func(context.Context) (T, error)) (T, error) {
	fromDurable := false
	data, created, err := GetOrCreate(ctx, t.memory, key, func() (T, time.Duration, error) {
		if data, remaining, ok := t.getDurable(ctx, key); ok {
			fromDurable = true
			return data, remaining, nil
		}

		t.tracker.TrackCacheMiss()

		data, err := create(ctx)
		if err != nil {
			var empty T
			return empty, 0, err
		}

		// NOTE: A failed durable write is reported, the caller still gets the data
		_ = t.setDurable(ctx, key, scope, data)

		return data, scope.Kind.TTL(), nil
	})
	if err != nil {
		var empty T
		return empty, err
	}

	if !created || fromDurable {
		t.tracker.TrackCacheHit()
	}

	return data, nil
}

// Set writes data to both tiers with the TTL of the scope's kind
func (t *Tiered[T]) Set(ctx context.Context, key string, scope domain.CacheScope, data T) error {
	t.memory.SetForKind(key, data, scope.Kind)
	return t.setDurable(ctx, key, scope, data)
}

// Fresh reports whether either tier holds an unexpired entry for key
func (t *Tiered[T]) Fresh(ctx context.Context, key string) (bool, error) {
	if t.memory.Has(key) {
		return true, nil
	}

	_, err := t.durable.Get(ctx, key)
	if errors.Is(err, domain.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tiered[T]) Invalidate(ctx context.Context, key string) error {
	t.memory.Invalidate(key)
	return t.durable.Invalidate(ctx, key)
}

// InvalidatePattern removes matching keys from both tiers.
// The pattern must be valid in both Go and Postgres regular expression syntax.
func (t *Tiered[T]) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	removed := int64(t.memory.InvalidatePattern(rx))

	durableRemoved, err := t.durable.InvalidatePattern(ctx, pattern)
	if err != nil {
		return removed, err
	}
	return max(removed, durableRemoved), nil
}

func (t *Tiered[T]) getDurable(ctx context.Context, key string) (T, time.Duration, bool) {
	var empty T

	entry, err := t.durable.Get(ctx, key)
	if errors.Is(err, domain.ErrCacheMiss) {
		return empty, 0, false
	} else if err != nil {
		// NOTE: DurableStore implementations handle their own error reporting
		logging.FromContext(ctx).WarnContext(ctx, "Durable cache read failed, falling through", "key", key, "error", err.Error())
		return empty, 0, false
	}

	cached := entry.Cached()
	now := t.nowFunc()
	if !cached.FreshAt(now) {
		return empty, 0, false
	}
	// Promoted entries never outlive the durable entry
	remaining := cached.ExpiresAt().Sub(now)
	if remaining <= 0 {
		return empty, 0, false
	}

	var data T
	if err := json.Unmarshal(cached.Data, &data); err != nil {
		err = fmt.Errorf("failed to unmarshal durable cache entry %s: %w", key, err)
		reporting.Report(ctx, err, map[string]string{"key": key})
		return empty, 0, false
	}

	return data, remaining, true
}

func (t *Tiered[T]) setDurable(ctx context.Context, key string, scope domain.CacheScope, data T) error {
	payload, err := json.Marshal(data)
	if err != nil {
		err = fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
		reporting.Report(ctx, err, map[string]string{"key": key})
		return err
	}

	now := t.nowFunc()
	err = t.durable.Set(ctx, cacherepository.Entry{
		Key:       key,
		Scope:     scope,
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(scope.Kind.TTL()),
	})
	if err != nil {
		// NOTE: DurableStore implementations handle their own error reporting
		logging.FromContext(ctx).WarnContext(ctx, "Durable cache write failed", "key", key, "error", err.Error())
		return err
	}
	return nil
}
