package ports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/esportsync/internal/adapters/cache"
	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/monitor"
	"github.com/Amund211/esportsync/internal/reporting"
)

type syncResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Results []domain.SyncTaskResult `json:"results,omitempty"`
}

func MakeRunSyncHandler(
	runSync app.RunSync,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("run_sync"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("run_sync"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		force := false
		if rawForce := r.URL.Query().Get("force"); rawForce != "" {
			parsed, err := strconv.ParseBool(rawForce)
			if err != nil {
				writeResponse(ctx, w, http.StatusBadRequest, syncResponse{Success: false, Message: "Invalid force parameter"})
				return
			}
			force = parsed
		}

		// The run outlives a disconnecting client so the budget spent is not wasted
		runCtx := context.WithoutCancel(ctx)

		results, err := runSync(runCtx, app.SyncOptions{Force: force})
		if app.IsSyncInProgress(err) {
			logging.FromContext(ctx).InfoContext(ctx, "Sync already in progress")
			writeResponse(ctx, w, http.StatusConflict, syncResponse{Success: false, Message: "Sync already in progress"})
			return
		} else if err != nil {
			// NOTE: RunSync implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "Sync failed", "error", err.Error())
			writeResponse(ctx, w, http.StatusInternalServerError, syncResponse{Success: false, Message: "Sync failed"})
			return
		}

		succeeded, failed, skipped := app.CountResults(results)
		writeResponse(ctx, w, http.StatusOK, syncResponse{
			Success: true,
			Message: fmt.Sprintf("Sync completed: %d succeeded, %d failed, %d skipped", succeeded, failed, skipped),
			Results: results,
		})
	}

	return middleware(handler)
}

type syncConfigResponse struct {
	MaxRequestsPerHour  int    `json:"maxRequestsPerHour"`
	RecommendedInterval string `json:"recommendedInterval"`
	BatchSize           int    `json:"batchSize"`
}

// MakeGetSyncConfigHandler describes how syncs are scheduled. A zero interval means manual syncs only.
func MakeGetSyncConfigHandler(
	maxRequestsPerHour int,
	syncInterval time.Duration,
	batchSize int,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("sync_config"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("sync_config"),
	)

	recommendedInterval := "manual"
	if syncInterval > 0 {
		recommendedInterval = syncInterval.String()
	}

	response := syncConfigResponse{
		MaxRequestsPerHour:  maxRequestsPerHour,
		RecommendedInterval: recommendedInterval,
		BatchSize:           batchSize,
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		writeResponse(r.Context(), w, http.StatusOK, response)
	}

	return middleware(handler)
}

type statsProvider interface {
	Stats(ctx context.Context) monitor.Stats
	RateLimitInfo(ctx context.Context) monitor.RateLimitInfo
}

type statsResponse struct {
	Stats     monitor.Stats               `json:"stats"`
	RateLimit monitor.RateLimitInfo       `json:"rateLimit"`
	Caches    map[string]cache.CacheStats `json:"caches"`
}

func MakeGetStatsHandler(
	stats statsProvider,
	cacheStats func() map[string]cache.CacheStats,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("stats"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("stats"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		writeResponse(ctx, w, http.StatusOK, statsResponse{
			Stats:     stats.Stats(ctx),
			RateLimit: stats.RateLimitInfo(ctx),
			Caches:    cacheStats(),
		})
	}

	return middleware(handler)
}
