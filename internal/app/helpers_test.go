package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Amund211/esportsync/internal/adapters/cacherepository"
	"github.com/Amund211/esportsync/internal/adapters/esportsprovider"
	"github.com/Amund211/esportsync/internal/adapters/esportsrepository"
	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/monitor"
	"github.com/Amund211/esportsync/internal/ratelimiting"
)

// countingAPI serves the mocked data and counts calls per method.
// A hook can replace the response of any call.
type countingAPI struct {
	esportsprovider.EsportsAPI

	mu    sync.Mutex
	calls map[string]int
	hook  func(method string, game *domain.GameType) error
}

func newCountingAPI() *countingAPI {
	return &countingAPI{
		EsportsAPI: esportsprovider.NewMockedAPI(),
		calls:      map[string]int{},
	}
}

func (a *countingAPI) record(method string, game *domain.GameType) error {
	a.mu.Lock()
	a.calls[method]++
	hook := a.hook
	a.mu.Unlock()

	if hook != nil {
		return hook(method, game)
	}
	return nil
}

func (a *countingAPI) Calls(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

func (a *countingAPI) TotalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, count := range a.calls {
		total += count
	}
	return total
}

func (a *countingAPI) LiveMatches(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]domain.Match, error) {
	if err := a.record("LiveMatches", game); err != nil {
		return nil, err
	}
	return a.EsportsAPI.LiveMatches(ctx, game, page)
}

func (a *countingAPI) UpcomingMatches(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]domain.Match, error) {
	if err := a.record("UpcomingMatches", game); err != nil {
		return nil, err
	}
	return a.EsportsAPI.UpcomingMatches(ctx, game, page)
}

func (a *countingAPI) PastMatches(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]domain.Match, error) {
	if err := a.record("PastMatches", game); err != nil {
		return nil, err
	}
	return a.EsportsAPI.PastMatches(ctx, game, page)
}

func (a *countingAPI) Tournaments(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]domain.Tournament, error) {
	if err := a.record("Tournaments", game); err != nil {
		return nil, err
	}
	return a.EsportsAPI.Tournaments(ctx, game, page)
}

func (a *countingAPI) Teams(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]domain.Team, error) {
	if err := a.record("Teams", game); err != nil {
		return nil, err
	}
	return a.EsportsAPI.Teams(ctx, game, page)
}

func (a *countingAPI) Players(ctx context.Context, game *domain.GameType, page esportsprovider.Page) ([]domain.Player, error) {
	if err := a.record("Players", game); err != nil {
		return nil, err
	}
	return a.EsportsAPI.Players(ctx, game, page)
}

type testEnv struct {
	api     *countingAPI
	repo    *esportsrepository.Stub
	durable *cacherepository.Stub
	monitor *monitor.Monitor
	caches  app.Caches
	lock    app.RunLock
}

func newTestEnv(monitorOpts ...monitor.Option) *testEnv {
	m := monitor.New(monitorOpts...)
	durable := cacherepository.NewStub()
	return &testEnv{
		api:     newCountingAPI(),
		repo:    esportsrepository.NewStub(),
		durable: durable,
		monitor: m,
		caches:  app.NewCaches(durable, m),
		lock:    app.NewLocalRunLock(),
	}
}

func (e *testEnv) runSync(t *testing.T, scope config.SyncScope) app.RunSync {
	t.Helper()

	runSync, err := app.BuildRunSync(app.SyncDeps{
		Scope:   scope,
		API:     e.api,
		Repo:    e.repo,
		Caches:  e.caches,
		Monitor: e.monitor,
		Pacer:   ratelimiting.NewPacer(0, 1),
		Lock:    e.lock,
	})
	require.NoError(t, err)
	return runSync
}

func scopeOf(games []domain.GameType, resources []domain.SyncResource) config.SyncScope {
	scope := config.DefaultSyncScope()
	scope.Games = games
	scope.Resources = resources
	return scope
}
