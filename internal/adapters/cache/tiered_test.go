package cache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/Amund211/esportsync/internal/adapters/cache"
	"github.com/Amund211/esportsync/internal/adapters/cacherepository"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/stretchr/testify/require"
)

type countingTracker struct {
	hits   atomic.Int32
	misses atomic.Int32
}

func (c *countingTracker) TrackCacheHit() {
	c.hits.Add(1)
}

func (c *countingTracker) TrackCacheMiss() {
	c.misses.Add(1)
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(ctx context.Context, key string) (cacherepository.Entry, error) {
	return cacherepository.Entry{}, &domain.PersistenceError{Op: "get", Err: errStoreDown}
}

func (failingStore) Set(ctx context.Context, entry cacherepository.Entry) error {
	return &domain.PersistenceError{Op: "set", Err: errStoreDown}
}

func (failingStore) Invalidate(ctx context.Context, key string) error {
	return &domain.PersistenceError{Op: "invalidate", Err: errStoreDown}
}

func (failingStore) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	return 0, &domain.PersistenceError{Op: "invalidate pattern", Err: errStoreDown}
}

var lol = domain.GameLoL
var teamsLoL = domain.CacheScope{Kind: domain.KindTeams, Game: &lol}

type team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newTiered(tracker *countingTracker, store cache.DurableStore) *cache.Tiered[[]team] {
	return cache.NewTiered(
		cache.NewTTLCache[[]team](time.Hour),
		store,
		cache.WithHitTracker[[]team](tracker),
	)
}

func TestTiered(t *testing.T) {
	t.Parallel()

	teams := []team{{ID: 1, Name: "T1"}, {ID: 2, Name: "G2"}}

	t.Run("get or create fills both tiers", func(t *testing.T) {
		t.Parallel()

		tracker := &countingTracker{}
		store := cacherepository.NewStub()
		tiered := newTiered(tracker, store)

		calls := 0
		create := func(ctx context.Context) ([]team, error) {
			calls++
			return teams, nil
		}

		data, err := tiered.GetOrCreate(t.Context(), "teams_lol", teamsLoL, create)
		require.NoError(t, err)
		require.Equal(t, teams, data)

		data, err = tiered.GetOrCreate(t.Context(), "teams_lol", teamsLoL, create)
		require.NoError(t, err)
		require.Equal(t, teams, data)

		require.Equal(t, 1, calls)
		require.Equal(t, int32(1), tracker.hits.Load())
		require.Equal(t, int32(1), tracker.misses.Load())

		entry, err := store.Get(t.Context(), "teams_lol")
		require.NoError(t, err)
		require.JSONEq(t, `[{"id":1,"name":"T1"},{"id":2,"name":"G2"}]`, string(entry.Payload))
		require.Equal(t, teamsLoL, entry.Scope)
	})

	t.Run("durable hit is promoted with the remaining lifetime", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			tracker := &countingTracker{}
			store := cacherepository.NewStub()
			writer := newTiered(&countingTracker{}, store)
			require.NoError(t, writer.Set(t.Context(), "teams_lol", teamsLoL, teams))

			time.Sleep(20 * time.Minute)

			// A fresh process only has the durable tier
			reader := newTiered(tracker, store)
			data, err := reader.GetOrCreate(t.Context(), "teams_lol", teamsLoL, func(ctx context.Context) ([]team, error) {
				t.Fatal("create should not be called on a durable hit")
				return nil, nil
			})
			require.NoError(t, err)
			require.Equal(t, teams, data)
			require.Equal(t, int32(1), tracker.hits.Load())
			require.Zero(t, tracker.misses.Load())
			require.True(t, reader.Memory().Has("teams_lol"))

			time.Sleep(10*time.Minute + time.Second)
			require.False(t, reader.Memory().Has("teams_lol"), "promoted entry must not outlive the durable entry")
			_, ok := reader.Get(t.Context(), "teams_lol")
			require.False(t, ok)
		})
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()

		tracker := &countingTracker{}
		tiered := newTiered(tracker, cacherepository.NewStub())

		_, ok := tiered.Get(t.Context(), "teams_lol")
		require.False(t, ok)

		require.NoError(t, tiered.Set(t.Context(), "teams_lol", teamsLoL, teams))
		data, ok := tiered.Get(t.Context(), "teams_lol")
		require.True(t, ok)
		require.Equal(t, teams, data)

		require.Equal(t, int32(1), tracker.hits.Load())
		require.Equal(t, int32(1), tracker.misses.Load())
	})

	t.Run("durable get is promoted with the remaining lifetime", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			store := cacherepository.NewStub()
			writer := newTiered(&countingTracker{}, store)
			require.NoError(t, writer.Set(t.Context(), "teams_lol", teamsLoL, teams))

			time.Sleep(25 * time.Minute)

			reader := newTiered(&countingTracker{}, store)
			require.False(t, reader.Memory().Has("teams_lol"))

			data, ok := reader.Get(t.Context(), "teams_lol")
			require.True(t, ok)
			require.Equal(t, teams, data)
			require.True(t, reader.Memory().Has("teams_lol"))

			time.Sleep(5*time.Minute + time.Second)
			require.False(t, reader.Memory().Has("teams_lol"))
		})
	})

	t.Run("create errors are returned and not cached", func(t *testing.T) {
		t.Parallel()

		tiered := newTiered(&countingTracker{}, cacherepository.NewStub())
		upstreamErr := &domain.UpstreamError{StatusCode: 503, Status: "Service Unavailable", Path: "/lol/teams"}

		_, err := tiered.GetOrCreate(t.Context(), "teams_lol", teamsLoL, func(ctx context.Context) ([]team, error) {
			return nil, upstreamErr
		})
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)

		fresh, err := tiered.Fresh(t.Context(), "teams_lol")
		require.NoError(t, err)
		require.False(t, fresh)
	})

	t.Run("durable failures fall through to create", func(t *testing.T) {
		t.Parallel()

		tiered := newTiered(&countingTracker{}, failingStore{})

		data, err := tiered.GetOrCreate(t.Context(), "teams_lol", teamsLoL, func(ctx context.Context) ([]team, error) {
			return teams, nil
		})
		require.NoError(t, err)
		require.Equal(t, teams, data)
		require.True(t, tiered.Memory().Has("teams_lol"))

		err = tiered.Set(t.Context(), "teams_lol", teamsLoL, teams)
		var persistenceErr *domain.PersistenceError
		require.ErrorAs(t, err, &persistenceErr)
	})

	t.Run("fresh", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			store := cacherepository.NewStub()
			tiered := newTiered(&countingTracker{}, store)
			require.NoError(t, tiered.Set(t.Context(), "teams_lol", teamsLoL, teams))

			fresh, err := tiered.Fresh(t.Context(), "teams_lol")
			require.NoError(t, err)
			require.True(t, fresh)

			tiered.Memory().Clear()
			fresh, err = tiered.Fresh(t.Context(), "teams_lol")
			require.NoError(t, err)
			require.True(t, fresh, "durable tier alone is enough")

			time.Sleep(31 * time.Minute)
			fresh, err = tiered.Fresh(t.Context(), "teams_lol")
			require.NoError(t, err)
			require.False(t, fresh)
		})
	})

	t.Run("invalidate", func(t *testing.T) {
		t.Parallel()

		store := cacherepository.NewStub()
		tiered := newTiered(&countingTracker{}, store)
		require.NoError(t, tiered.Set(t.Context(), "teams_lol", teamsLoL, teams))
		require.NoError(t, tiered.Set(t.Context(), "teams_cs2", teamsLoL, teams))
		require.NoError(t, tiered.Set(t.Context(), "teams_dota2", teamsLoL, teams))

		require.NoError(t, tiered.Invalidate(t.Context(), "teams_dota2"))
		_, err := store.Get(t.Context(), "teams_dota2")
		require.ErrorIs(t, err, domain.ErrCacheMiss)

		removed, err := tiered.InvalidatePattern(t.Context(), "^teams_")
		require.NoError(t, err)
		require.Equal(t, int64(2), removed)
		require.Empty(t, tiered.Memory().Stats().Keys)

		_, err = tiered.InvalidatePattern(t.Context(), "(")
		require.Error(t, err)
	})
}
