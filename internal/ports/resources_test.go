package ports_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/ports"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func noopMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r)
	}
}

func makeGameRequest(method, path, game string) *http.Request {
	req := httptest.NewRequest(method, fmt.Sprintf(path, game), nil)
	req.SetPathValue("game", game)
	return req
}

func TestMakeGetTeamsHandler(t *testing.T) {
	t.Parallel()

	makeGetTeams := func(t *testing.T, expectedGame *domain.GameType, teams []domain.Team, err error) (func(ctx context.Context, game *domain.GameType) ([]domain.Team, error), *bool) {
		called := false
		return func(ctx context.Context, game *domain.GameType) ([]domain.Team, error) {
			t.Helper()
			require.Equal(t, expectedGame, game)
			called = true
			return teams, err
		}, &called
	}

	lol := domain.GameLoL
	cs2 := domain.GameCS2

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		getTeams, called := makeGetTeams(t, &lol, []domain.Team{{ID: 1, Name: "T1", Slug: "t1"}}, nil)
		handler := ports.MakeGetTeamsHandler(getTeams, testLogger, noopMiddleware)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/teams", "lol"))

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.JSONEq(t, `{"success":true,"data":[{"id":1,"name":"T1","acronym":null,"slug":"t1","location":null,"image_url":null}]}`, w.Body.String())
		require.True(t, *called)
	})

	t.Run("csgo is an alias of cs2", func(t *testing.T) {
		t.Parallel()

		getTeams, called := makeGetTeams(t, &cs2, []domain.Team{}, nil)
		handler := ports.MakeGetTeamsHandler(getTeams, testLogger, noopMiddleware)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/teams", "csgo"))

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
		require.True(t, *called)
	})

	t.Run("invalid games", func(t *testing.T) {
		t.Parallel()

		for _, game := range []string{"fortnite", "all", ""} {
			t.Run(game, func(t *testing.T) {
				t.Parallel()

				getTeams, called := makeGetTeams(t, nil, nil, nil)
				handler := ports.MakeGetTeamsHandler(getTeams, testLogger, noopMiddleware)

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/teams", game))

				require.Equal(t, http.StatusBadRequest, w.Code)
				require.JSONEq(t, `{"success":false,"cause":"invalid game"}`, w.Body.String())
				require.False(t, *called)
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		for _, c := range []struct {
			name       string
			err        error
			statusCode int
			cause      string
		}{
			{
				name:       "budget exhausted",
				err:        fmt.Errorf("failed to get teams_lol: %w", domain.ErrBudgetExhausted),
				statusCode: http.StatusServiceUnavailable,
				cause:      "request budget exhausted",
			},
			{
				name:       "upstream rate limited",
				err:        &domain.UpstreamError{StatusCode: http.StatusTooManyRequests, Status: "Too Many Requests", Path: "/lol/teams"},
				statusCode: http.StatusServiceUnavailable,
				cause:      "temporarily unavailable",
			},
			{
				name:       "timeout",
				err:        &domain.TimeoutError{Operation: "GET /lol/teams", Timeout: 10 * time.Second},
				statusCode: http.StatusServiceUnavailable,
				cause:      "temporarily unavailable",
			},
			{
				name:       "schema error",
				err:        &domain.SchemaError{Resource: "teams", Err: fmt.Errorf("missing name")},
				statusCode: http.StatusInternalServerError,
				cause:      "internal server error",
			},
		} {
			t.Run(c.name, func(t *testing.T) {
				t.Parallel()

				getTeams, called := makeGetTeams(t, &lol, nil, c.err)
				handler := ports.MakeGetTeamsHandler(getTeams, testLogger, noopMiddleware)

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/teams", "lol"))

				require.Equal(t, c.statusCode, w.Code)
				require.JSONEq(t, fmt.Sprintf(`{"success":false,"cause":"%s"}`, c.cause), w.Body.String())
				require.True(t, *called)
			})
		}
	})
}

func TestMatchHandlers(t *testing.T) {
	t.Parallel()

	for _, c := range []struct {
		name        string
		makeHandler func(get func(ctx context.Context, game *domain.GameType) ([]domain.Match, error)) http.HandlerFunc
	}{
		{
			name: "live",
			makeHandler: func(get func(ctx context.Context, game *domain.GameType) ([]domain.Match, error)) http.HandlerFunc {
				return ports.MakeGetLiveMatchesHandler(get, testLogger, noopMiddleware)
			},
		},
		{
			name: "upcoming",
			makeHandler: func(get func(ctx context.Context, game *domain.GameType) ([]domain.Match, error)) http.HandlerFunc {
				return ports.MakeGetUpcomingMatchesHandler(get, testLogger, noopMiddleware)
			},
		},
		{
			name: "past",
			makeHandler: func(get func(ctx context.Context, game *domain.GameType) ([]domain.Match, error)) http.HandlerFunc {
				return ports.MakeGetPastMatchesHandler(get, testLogger, noopMiddleware)
			},
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			t.Run("aggregate", func(t *testing.T) {
				t.Parallel()

				called := false
				handler := c.makeHandler(func(ctx context.Context, game *domain.GameType) ([]domain.Match, error) {
					require.Nil(t, game)
					called = true
					return []domain.Match{{ID: 3, Name: "A vs B", Status: "running"}}, nil
				})

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/matches/"+c.name, "all"))

				require.Equal(t, http.StatusOK, w.Code)
				require.Contains(t, w.Body.String(), `"name":"A vs B"`)
				require.True(t, called)
			})

			t.Run("single game", func(t *testing.T) {
				t.Parallel()

				handler := c.makeHandler(func(ctx context.Context, game *domain.GameType) ([]domain.Match, error) {
					require.NotNil(t, game)
					require.Equal(t, domain.GameDota2, *game)
					return []domain.Match{}, nil
				})

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/matches/"+c.name, "dota2"))

				require.Equal(t, http.StatusOK, w.Code)
				require.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
			})
		})
	}
}

func TestOtherResourceHandlers(t *testing.T) {
	t.Parallel()

	t.Run("tournaments", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetTournamentsHandler(func(ctx context.Context, game *domain.GameType) ([]domain.Tournament, error) {
			require.Equal(t, domain.GameLoL, *game)
			return []domain.Tournament{{ID: 9, Name: "Worlds", Slug: "worlds"}}, nil
		}, testLogger, noopMiddleware)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/tournaments", "lol"))

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"name":"Worlds"`)
	})

	t.Run("players", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetPlayersHandler(func(ctx context.Context, game *domain.GameType) ([]domain.Player, error) {
			require.Equal(t, domain.GameCS2, *game)
			return []domain.Player{{ID: 7, Name: "s1mple"}}, nil
		}, testLogger, noopMiddleware)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/players", "cs2"))

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"name":"s1mple"`)
	})

	t.Run("overview", func(t *testing.T) {
		t.Parallel()

		generatedAt := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
		handler := ports.MakeGetOverviewHandler(func(ctx context.Context, game domain.GameType) (domain.Overview, error) {
			require.Equal(t, domain.GameDota2, game)
			return domain.Overview{Game: game, LiveMatches: []domain.Match{}, UpcomingMatches: []domain.Match{}, GeneratedAt: generatedAt}, nil
		}, testLogger, noopMiddleware)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/overview", "dota2"))

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"success":true,"data":{"game":"dota2","liveMatches":[],"upcomingMatches":[],"generatedAt":"2026-03-14T12:00:00Z"}}`, w.Body.String())

		w = httptest.NewRecorder()
		handler.ServeHTTP(w, makeGameRequest("GET", "/v1/%s/overview", "all"))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
