package app

import (
	"context"
	"time"

	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/reporting"
)

// RunSyncEvery runs a sync every interval until ctx is done.
// A run that finds another one in progress is skipped.
func RunSyncEvery(ctx context.Context, runSync RunSync, interval time.Duration) {
	ctx = reporting.WithHub(ctx, map[string]string{"component": "scheduler"})
	logger := logging.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := runSync(ctx, SyncOptions{})
			if IsSyncInProgress(err) {
				logger.InfoContext(ctx, "Skipping scheduled sync, another run is in progress")
				continue
			}
			if err != nil {
				// NOTE: RunSync implementations handle their own error reporting
				logger.ErrorContext(ctx, "Scheduled sync failed", "error", err.Error())
				continue
			}

			succeeded, failed, skipped := CountResults(results)
			logger.InfoContext(ctx, "Scheduled sync finished", "succeeded", succeeded, "failed", failed, "skipped", skipped)
		}
	}
}

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeExpiredEvery removes expired entries from the durable cache every interval until ctx is done
func PurgeExpiredEvery(ctx context.Context, purger expiredPurger, interval time.Duration) {
	ctx = reporting.WithHub(ctx, map[string]string{"component": "cache-cleanup"})
	logger := logging.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purger.PurgeExpired(ctx)
			if err != nil {
				// NOTE: Durable store implementations handle their own error reporting
				logger.ErrorContext(ctx, "Failed to purge expired cache entries", "error", err.Error())
				continue
			}
			if removed > 0 {
				logger.InfoContext(ctx, "Purged expired cache entries", "count", removed)
			}
		}
	}
}
