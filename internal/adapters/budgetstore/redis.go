package budgetstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/reporting"
)

const keyPrefix = "esportsync:"

const window = time.Hour

func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Window is the hourly request window shared by every instance, stored as a
// sorted set of request timestamps
type Window struct {
	client *redis.Client
	key    string
	tracer trace.Tracer
}

func NewWindow(client *redis.Client, name string) *Window {
	return &Window{
		client: client,
		key:    keyPrefix + "window:" + name,
		tracer: otel.Tracer("esportsync/budgetstore/redis"),
	}
}

// windowStart is the oldest score still inside the window. A request exactly
// one hour old is counted, matching the local window.
func windowStart(now time.Time) string {
	return strconv.FormatInt(now.Add(-window).UnixMicro(), 10)
}

func (w *Window) Record(ctx context.Context, at time.Time) (int, error) {
	ctx, span := w.tracer.Start(ctx, "Redis.RecordRequest")
	defer span.End()

	// Members must be unique, requests in the same microsecond are distinct
	member := fmt.Sprintf("%d-%s", at.UnixMicro(), uuid.NewString())

	pipe := w.client.TxPipeline()
	pipe.ZAdd(ctx, w.key, redis.Z{Score: float64(at.UnixMicro()), Member: member})
	pipe.ZRemRangeByScore(ctx, w.key, "-inf", "("+windowStart(at))
	count := pipe.ZCard(ctx, w.key)
	pipe.Expire(ctx, w.key, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		err = fmt.Errorf("failed to record request in shared window: %w", err)
		reporting.Report(ctx, err)
		return 0, err
	}

	return int(count.Val()), nil
}

func (w *Window) Count(ctx context.Context, now time.Time) (int, error) {
	ctx, span := w.tracer.Start(ctx, "Redis.CountRequests")
	defer span.End()

	count, err := w.client.ZCount(ctx, w.key, windowStart(now), "+inf").Result()
	if err != nil {
		err = fmt.Errorf("failed to count requests in shared window: %w", err)
		reporting.Report(ctx, err)
		return 0, err
	}

	return int(count), nil
}

func (w *Window) Oldest(ctx context.Context, now time.Time) (time.Time, bool, error) {
	ctx, span := w.tracer.Start(ctx, "Redis.OldestRequest")
	defer span.End()

	oldest, err := w.client.ZRangeByScoreWithScores(ctx, w.key, &redis.ZRangeBy{
		Min:   windowStart(now),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		err = fmt.Errorf("failed to read oldest request in shared window: %w", err)
		reporting.Report(ctx, err)
		return time.Time{}, false, err
	}
	if len(oldest) == 0 {
		return time.Time{}, false, nil
	}

	return time.UnixMicro(int64(oldest[0].Score)).UTC(), true, nil
}

// releaseScript deletes the lock only if it is still held by the caller
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock keeps sync runs on different instances from overlapping
type RunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRunLock creates a lock that expires after ttl in case the holder dies
func NewRunLock(client *redis.Client, name string, ttl time.Duration) *RunLock {
	return &RunLock{
		client: client,
		key:    keyPrefix + "lock:" + name,
		ttl:    ttl,
		tracer: otel.Tracer("esportsync/budgetstore/redis"),
	}
}

// Acquire returns domain.ErrSyncInProgress when another holder has the lock
func (l *RunLock) Acquire(ctx context.Context) (func(), error) {
	ctx, span := l.tracer.Start(ctx, "Redis.AcquireRunLock")
	defer span.End()

	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		err = fmt.Errorf("failed to acquire run lock: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}

	release := func() {
		// The run context may already be cancelled, the lock should be released regardless
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			reporting.Report(releaseCtx, fmt.Errorf("failed to release run lock: %w", err))
		}
	}

	return release, nil
}
