package ports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/ratelimiting"
	"github.com/Amund211/esportsync/internal/reporting"
)

const aggregateGame = "all"

// parseGame reads the {game} path value. A nil game is the aggregate over all games.
func parseGame(raw string, allowAggregate bool) (*domain.GameType, error) {
	if raw == aggregateGame {
		if !allowAggregate {
			return nil, domain.ErrInvalidGame
		}
		return nil, nil
	}

	game, err := domain.ParseGameType(raw)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func makeGameResourceHandler[T any](
	port string,
	allowAggregate bool,
	get func(ctx context.Context, game *domain.GameType) (T, error),
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware(port),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware(port),
		newIPRateLimitMiddleware(ratelimiting.RefillPerSecond(8), ratelimiting.BurstSize(480)),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rawGame := r.PathValue("game")
		ctx = logging.AddMetaToContext(ctx, slog.String("rawGame", rawGame))
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"rawGame": rawGame,
			},
		)

		game, err := parseGame(rawGame, allowAggregate)
		if err != nil {
			logging.FromContext(ctx).InfoContext(ctx, "Invalid game. Returning error", "statusCode", http.StatusBadRequest, "reason", "invalid game")
			writeError(ctx, w, "invalid game", http.StatusBadRequest)
			return
		}

		ctx = logging.AddMetaToContext(ctx, slog.String("game", domain.ScopeName(game)))

		data, err := get(ctx, game)
		if errors.Is(err, domain.ErrBudgetExhausted) {
			logging.FromContext(ctx).WarnContext(ctx, "Request budget exhausted", "error", err.Error())
			writeError(ctx, w, "request budget exhausted", http.StatusServiceUnavailable)
			return
		} else if errors.Is(err, domain.ErrTemporarilyUnavailable) {
			logging.FromContext(ctx).ErrorContext(ctx, "Upstream temporarily unavailable", "error", err.Error())
			writeError(ctx, w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		} else if err != nil {
			// NOTE: Accessor implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "Failed to get resource", "error", err.Error())
			writeError(ctx, w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeData(ctx, w, data)
	}

	return middleware(handler)
}

func MakeGetLiveMatchesHandler(getLiveMatches app.GetMatches, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return makeGameResourceHandler[[]domain.Match]("live_matches", true, getLiveMatches, rootLogger, sentryMiddleware)
}

func MakeGetUpcomingMatchesHandler(getUpcomingMatches app.GetMatches, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return makeGameResourceHandler[[]domain.Match]("upcoming_matches", true, getUpcomingMatches, rootLogger, sentryMiddleware)
}

func MakeGetPastMatchesHandler(getPastMatches app.GetMatches, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return makeGameResourceHandler[[]domain.Match]("past_matches", true, getPastMatches, rootLogger, sentryMiddleware)
}

func MakeGetTournamentsHandler(getTournaments app.GetTournaments, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return makeGameResourceHandler[[]domain.Tournament]("tournaments", false, getTournaments, rootLogger, sentryMiddleware)
}

func MakeGetTeamsHandler(getTeams app.GetTeams, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return makeGameResourceHandler[[]domain.Team]("teams", false, getTeams, rootLogger, sentryMiddleware)
}

func MakeGetPlayersHandler(getPlayers app.GetPlayers, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	return makeGameResourceHandler[[]domain.Player]("players", false, getPlayers, rootLogger, sentryMiddleware)
}

func MakeGetOverviewHandler(getOverview app.GetOverview, rootLogger *slog.Logger, sentryMiddleware func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	get := func(ctx context.Context, game *domain.GameType) (domain.Overview, error) {
		// parseGame never returns a nil game when the aggregate is not allowed
		return getOverview(ctx, *game)
	}
	return makeGameResourceHandler("overview", false, get, rootLogger, sentryMiddleware)
}
