package app_test

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/domain"
)

func TestLocalRunLock(t *testing.T) {
	t.Parallel()

	lock := app.NewLocalRunLock()

	release, err := lock.Acquire(t.Context())
	require.NoError(t, err)

	_, err = lock.Acquire(t.Context())
	require.ErrorIs(t, err, domain.ErrSyncInProgress)

	release()

	release, err = lock.Acquire(t.Context())
	require.NoError(t, err)
	release()
}

func TestRunSyncEvery(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		var runs atomic.Int64
		runSync := func(ctx context.Context, opts app.SyncOptions) ([]domain.SyncTaskResult, error) {
			require.False(t, opts.Force)
			if runs.Add(1) == 2 {
				return nil, domain.ErrSyncInProgress
			}
			return []domain.SyncTaskResult{{Game: domain.GameLoL, ResourceType: domain.SyncTeams, Success: true}}, nil
		}

		done := make(chan struct{})
		go func() {
			app.RunSyncEvery(ctx, runSync, 30*time.Minute)
			close(done)
		}()

		synctest.Wait()
		require.Zero(t, runs.Load())

		time.Sleep(30 * time.Minute)
		synctest.Wait()
		require.Equal(t, int64(1), runs.Load())

		time.Sleep(60 * time.Minute)
		synctest.Wait()
		require.Equal(t, int64(3), runs.Load())

		cancel()
		<-done
	})
}

type countingPurger struct {
	calls atomic.Int64
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, nil
}

func TestPurgeExpiredEvery(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		purger := &countingPurger{}
		done := make(chan struct{})
		go func() {
			app.PurgeExpiredEvery(ctx, purger, 5*time.Minute)
			close(done)
		}()

		time.Sleep(16 * time.Minute)
		synctest.Wait()
		require.Equal(t, int64(3), purger.calls.Load())

		cancel()
		<-done
	})
}
