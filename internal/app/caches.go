package app

import (
	"context"
	"time"

	"github.com/Amund211/esportsync/internal/adapters/cache"
	"github.com/Amund211/esportsync/internal/domain"
)

// Caches holds one tiered cache per value type. All of them share the durable store.
type Caches struct {
	Matches     *cache.Tiered[[]domain.Match]
	Teams       *cache.Tiered[[]domain.Team]
	Tournaments *cache.Tiered[[]domain.Tournament]
	Players     *cache.Tiered[[]domain.Player]
	Overviews   *cache.Tiered[domain.Overview]
}

func NewCaches(durable cache.DurableStore, tracker cache.HitTracker) Caches {
	return Caches{
		Matches:     newTiered[[]domain.Match](durable, tracker, domain.KindMatches),
		Teams:       newTiered[[]domain.Team](durable, tracker, domain.KindTeams),
		Tournaments: newTiered[[]domain.Tournament](durable, tracker, domain.KindTournaments),
		Players:     newTiered[[]domain.Player](durable, tracker, domain.KindPlayers),
		Overviews:   newTiered[domain.Overview](durable, tracker, domain.KindOverview),
	}
}

func newTiered[T any](durable cache.DurableStore, tracker cache.HitTracker, kind domain.ResourceKind) *cache.Tiered[T] {
	return cache.NewTiered(cache.NewTTLCache[T](kind.TTL()), durable, cache.WithHitTracker[T](tracker))
}

// StartCleanup sweeps expired entries from every in-process tier until ctx is done
func (c Caches) StartCleanup(ctx context.Context, interval time.Duration) {
	go c.Matches.Memory().StartCleanup(ctx, interval)
	go c.Teams.Memory().StartCleanup(ctx, interval)
	go c.Tournaments.Memory().StartCleanup(ctx, interval)
	go c.Players.Memory().StartCleanup(ctx, interval)
	go c.Overviews.Memory().StartCleanup(ctx, interval)
}

// Stats of the in-process tiers by value type
func (c Caches) Stats() map[string]cache.CacheStats {
	return map[string]cache.CacheStats{
		"matches":     c.Matches.Memory().Stats(),
		"teams":       c.Teams.Memory().Stats(),
		"tournaments": c.Tournaments.Memory().Stats(),
		"players":     c.Players.Memory().Stats(),
		"overviews":   c.Overviews.Memory().Stats(),
	}
}
