package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Amund211/esportsync/internal/adapters/cache"
	"github.com/Amund211/esportsync/internal/adapters/esportsprovider"
	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/reporting"
)

type SyncOptions struct {
	// Force syncs tasks whose cache entry is still fresh
	Force bool

	// Games and Resources narrow the configured scope when not empty
	Games     []domain.GameType
	Resources []domain.SyncResource
}

// RunSync refreshes the durable store and cache for every task in the plan.
// Task failures are part of the results, the error is only set when the run could not start.
type RunSync func(ctx context.Context, opts SyncOptions) ([]domain.SyncTaskResult, error)

type EntityRepository interface {
	StoreTeams(ctx context.Context, game domain.GameType, teams []domain.Team) error
	StoreMatches(ctx context.Context, game domain.GameType, matches []domain.Match) error
	StoreTournaments(ctx context.Context, game domain.GameType, tournaments []domain.Tournament) error
	StorePlayers(ctx context.Context, game domain.GameType, players []domain.Player) error
}

type Pacer interface {
	Wait(ctx context.Context) error
}

type SyncDeps struct {
	Scope   config.SyncScope
	API     esportsprovider.EsportsAPI
	Repo    EntityRepository
	Caches  Caches
	Monitor requestMonitor
	Pacer   Pacer
	Lock    RunLock
}

type syncer interface {
	fresh(ctx context.Context, key string) (bool, error)
	run(ctx context.Context, task domain.SyncTask, page esportsprovider.Page, monitor requestMonitor) (int, error)
}

type resourceSyncer[T any] struct {
	tiered  *cache.Tiered[[]T]
	fetch   fetchFunc[T]
	persist func(ctx context.Context, game domain.GameType, records []T) error
}

func (s resourceSyncer[T]) fresh(ctx context.Context, key string) (bool, error) {
	return s.tiered.Fresh(ctx, key)
}

func (s resourceSyncer[T]) run(ctx context.Context, task domain.SyncTask, page esportsprovider.Page, monitor requestMonitor) (int, error) {
	game := task.Game

	records, err := recordRequest(ctx, monitor, func(ctx context.Context) ([]T, error) {
		return s.fetch(ctx, &game, page)
	})
	if err != nil {
		// NOTE: EsportsAPI implementations handle their own error reporting
		return 0, fmt.Errorf("failed to fetch %s: %w", task.Resource, err)
	}

	err = s.persist(ctx, game, records)
	if err != nil {
		// NOTE: EntityRepository implementations handle their own error reporting
		return 0, fmt.Errorf("failed to store %s: %w", task.Resource, err)
	}

	scope := domain.CacheScope{Kind: task.Resource.Kind(), Game: &game}
	err = s.tiered.Set(ctx, task.Resource.CacheKey(&game), scope, records)
	if err != nil {
		return 0, fmt.Errorf("failed to cache %s: %w", task.Resource, err)
	}

	return len(records), nil
}

func newSyncers(deps SyncDeps) map[domain.SyncResource]syncer {
	return map[domain.SyncResource]syncer{
		domain.SyncTeams: resourceSyncer[domain.Team]{
			tiered:  deps.Caches.Teams,
			fetch:   deps.API.Teams,
			persist: deps.Repo.StoreTeams,
		},
		domain.SyncMatches: resourceSyncer[domain.Match]{
			tiered:  deps.Caches.Matches,
			fetch:   deps.API.UpcomingMatches,
			persist: deps.Repo.StoreMatches,
		},
		domain.SyncLiveMatches: resourceSyncer[domain.Match]{
			tiered:  deps.Caches.Matches,
			fetch:   deps.API.LiveMatches,
			persist: deps.Repo.StoreMatches,
		},
		domain.SyncPastMatches: resourceSyncer[domain.Match]{
			tiered:  deps.Caches.Matches,
			fetch:   deps.API.PastMatches,
			persist: deps.Repo.StoreMatches,
		},
		domain.SyncTournaments: resourceSyncer[domain.Tournament]{
			tiered:  deps.Caches.Tournaments,
			fetch:   deps.API.Tournaments,
			persist: deps.Repo.StoreTournaments,
		},
		domain.SyncPlayers: resourceSyncer[domain.Player]{
			tiered:  deps.Caches.Players,
			fetch:   deps.API.Players,
			persist: deps.Repo.StorePlayers,
		},
	}
}

type syncMetricsCollection struct {
	taskCount    metric.Int64Counter
	taskDuration metric.Float64Histogram
}

func setupSyncMetrics(meter metric.Meter) (syncMetricsCollection, error) {
	taskCount, err := meter.Int64Counter("app/sync/task_count")
	if err != nil {
		return syncMetricsCollection{}, fmt.Errorf("failed to create task count metric: %w", err)
	}

	taskDuration, err := meter.Float64Histogram(
		"app/sync/task_duration_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return syncMetricsCollection{}, fmt.Errorf("failed to create task duration metric: %w", err)
	}

	return syncMetricsCollection{
		taskCount:    taskCount,
		taskDuration: taskDuration,
	}, nil
}

// narrowScope applies the overrides in opts to the configured scope
func narrowScope(scope config.SyncScope, opts SyncOptions) config.SyncScope {
	if len(opts.Games) > 0 {
		scope.Games = slices.Clone(opts.Games)
	}
	if len(opts.Resources) > 0 {
		scope.Resources = slices.Clone(opts.Resources)
	}
	return scope
}

func BuildRunSync(deps SyncDeps) (RunSync, error) {
	const name = "esportsync/app/sync"

	metrics, err := setupSyncMetrics(otel.Meter(name))
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}
	tracer := otel.Tracer(name)

	syncers := newSyncers(deps)

	return func(ctx context.Context, opts SyncOptions) ([]domain.SyncTaskResult, error) {
		release, err := deps.Lock.Acquire(ctx)
		if err != nil {
			// NOTE: RunLock implementations handle their own error reporting
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer release()

		runID := uuid.NewString()
		ctx = logging.AddMetaToContext(ctx, slog.String("syncRunID", runID))
		ctx = reporting.AddSyncRunToContext(ctx, runID)
		ctx, span := tracer.Start(ctx, "Sync.Run")
		defer span.End()

		scope := narrowScope(deps.Scope, opts)
		plan := BuildPlan(scope)
		page := esportsprovider.Page{Number: 1, PerPage: scope.PerPage}

		logger := logging.FromContext(ctx)
		logger.InfoContext(ctx, "Starting sync", "tasks", len(plan), "force", opts.Force)

		results := make([]domain.SyncTaskResult, 0, len(plan))
		for _, task := range plan {
			start := time.Now()
			result := runTask(ctx, tracer, deps, syncers[task.Resource], task, page, opts.Force)

			outcome := outcomeOf(result)
			duration := time.Since(start)
			attributesOption := metric.WithAttributes(
				attribute.String("game", string(task.Game)),
				attribute.String("resource", string(task.Resource)),
				attribute.String("outcome", outcome),
			)
			metrics.taskCount.Add(ctx, 1, attributesOption)
			metrics.taskDuration.Record(ctx, duration.Seconds(), attributesOption)

			logger.InfoContext(
				ctx, "Sync task finished",
				"game", task.Game,
				"resource", task.Resource,
				"outcome", outcome,
				"reason", result.Reason,
				"error", result.Error,
				"duration", duration.String(),
			)

			results = append(results, result)
		}

		succeeded, failed, skipped := CountResults(results)
		logger.InfoContext(ctx, "Sync completed", "succeeded", succeeded, "failed", failed, "skipped", skipped)

		return results, nil
	}, nil
}

func runTask(
	ctx context.Context,
	tracer trace.Tracer,
	deps SyncDeps,
	s syncer,
	task domain.SyncTask,
	page esportsprovider.Page,
	force bool,
) (result domain.SyncTaskResult) {
	ctx = reporting.AddSyncTaskToContext(ctx, string(task.Game), string(task.Resource))
	ctx, span := tracer.Start(ctx, "Sync.Task")
	defer span.End()
	span.SetAttributes(
		attribute.String("game", string(task.Game)),
		attribute.String("resource", string(task.Resource)),
	)

	result = domain.SyncTaskResult{Game: task.Game, ResourceType: task.Resource}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in sync task: %v", r)
			reporting.Report(ctx, err)
			result = domain.SyncTaskResult{
				Game:         task.Game,
				ResourceType: task.Resource,
				Error:        err.Error(),
			}
		}
	}()

	if s == nil {
		result.Error = fmt.Sprintf("unknown resource %s", task.Resource)
		return result
	}

	if !force {
		fresh, err := s.fresh(ctx, task.Resource.CacheKey(&task.Game))
		if err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "Failed to check freshness, syncing anyway", "error", err.Error())
		}
		if fresh {
			result.Skipped = true
			result.Reason = domain.SkipFresh
			return result
		}
	}

	if !deps.Monitor.CanMakeRequest(ctx) {
		result.Skipped = true
		result.Reason = domain.SkipBudgetExhausted
		return result
	}

	if err := deps.Pacer.Wait(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	count, err := s.run(ctx, task, page, deps.Monitor)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Count = &count
	return result
}

func outcomeOf(result domain.SyncTaskResult) string {
	switch {
	case result.Success:
		return "success"
	case result.Skipped:
		return "skipped"
	}
	return "failed"
}

func CountResults(results []domain.SyncTaskResult) (succeeded, failed, skipped int) {
	for _, result := range results {
		switch outcomeOf(result) {
		case "success":
			succeeded++
		case "skipped":
			skipped++
		default:
			failed++
		}
	}
	return succeeded, failed, skipped
}

// IsSyncInProgress reports whether RunSync failed because another run holds the lock
func IsSyncInProgress(err error) bool {
	return errors.Is(err, domain.ErrSyncInProgress)
}
