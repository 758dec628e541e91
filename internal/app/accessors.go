package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/esportsync/internal/adapters/cache"
	"github.com/Amund211/esportsync/internal/adapters/esportsprovider"
	"github.com/Amund211/esportsync/internal/domain"
)

type GetMatches func(ctx context.Context, game *domain.GameType) ([]domain.Match, error)
type GetTournaments func(ctx context.Context, game *domain.GameType) ([]domain.Tournament, error)
type GetTeams func(ctx context.Context, game *domain.GameType) ([]domain.Team, error)
type GetPlayers func(ctx context.Context, game *domain.GameType) ([]domain.Player, error)
type GetOverview func(ctx context.Context, game domain.GameType) (domain.Overview, error)

type fetchFunc[T any] func(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]T, error)

func buildGetWithCache[T any](
	tiered *cache.Tiered[[]T],
	monitor requestMonitor,
	resource domain.SyncResource,
	fetch fetchFunc[T],
) func(ctx context.Context, game *domain.GameType) ([]T, error) {
	return func(ctx context.Context, game *domain.GameType) ([]T, error) {
		key := resource.CacheKey(game)
		scope := domain.CacheScope{Kind: resource.Kind(), Game: game}

		data, err := tiered.GetOrCreate(ctx, key, scope, func(ctx context.Context) ([]T, error) {
			return callUpstream(ctx, monitor, key, func(ctx context.Context) ([]T, error) {
				// NOTE: EsportsAPI implementations handle their own error reporting
				return fetch(ctx, game, esportsprovider.Page{})
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", key, err)
		}

		return data, nil
	}
}

func BuildGetLiveMatchesWithCache(caches Caches, api esportsprovider.EsportsAPI, monitor requestMonitor) GetMatches {
	return buildGetWithCache(caches.Matches, monitor, domain.SyncLiveMatches, api.LiveMatches)
}

func BuildGetUpcomingMatchesWithCache(caches Caches, api esportsprovider.EsportsAPI, monitor requestMonitor) GetMatches {
	return buildGetWithCache(caches.Matches, monitor, domain.SyncMatches, api.UpcomingMatches)
}

func BuildGetPastMatchesWithCache(caches Caches, api esportsprovider.EsportsAPI, monitor requestMonitor) GetMatches {
	return buildGetWithCache(caches.Matches, monitor, domain.SyncPastMatches, api.PastMatches)
}

func BuildGetTournamentsWithCache(caches Caches, api esportsprovider.EsportsAPI, monitor requestMonitor) GetTournaments {
	return buildGetWithCache(caches.Tournaments, monitor, domain.SyncTournaments, api.Tournaments)
}

func BuildGetTeamsWithCache(caches Caches, api esportsprovider.EsportsAPI, monitor requestMonitor) GetTeams {
	return buildGetWithCache(caches.Teams, monitor, domain.SyncTeams, api.Teams)
}

func BuildGetPlayersWithCache(caches Caches, api esportsprovider.EsportsAPI, monitor requestMonitor) GetPlayers {
	return buildGetWithCache(caches.Players, monitor, domain.SyncPlayers, api.Players)
}

// BuildGetOverviewWithCache combines the live and upcoming matches of a game.
// The parts are read through their own caches, so a cold overview costs at most two upstream calls.
func BuildGetOverviewWithCache(caches Caches, getLiveMatches GetMatches, getUpcomingMatches GetMatches, nowFunc func() time.Time) GetOverview {
	return func(ctx context.Context, game domain.GameType) (domain.Overview, error) {
		key := domain.OverviewCacheKey(game)
		scope := domain.CacheScope{Kind: domain.KindOverview, Game: &game}

		overview, err := caches.Overviews.GetOrCreate(ctx, key, scope, func(ctx context.Context) (domain.Overview, error) {
			live, err := getLiveMatches(ctx, &game)
			if err != nil {
				return domain.Overview{}, fmt.Errorf("failed to get live matches: %w", err)
			}

			upcoming, err := getUpcomingMatches(ctx, &game)
			if err != nil {
				return domain.Overview{}, fmt.Errorf("failed to get upcoming matches: %w", err)
			}

			return domain.Overview{
				Game:            game,
				LiveMatches:     live,
				UpcomingMatches: upcoming,
				GeneratedAt:     nowFunc(),
			}, nil
		})
		if err != nil {
			return domain.Overview{}, fmt.Errorf("failed to get %s: %w", key, err)
		}

		return overview, nil
	}
}
