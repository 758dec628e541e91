package cacherepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/reporting"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Entry is a serialized cache value in the durable tier
type Entry struct {
	Key       string
	Scope     domain.CacheScope
	Payload   []byte
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Cached is the entry's payload with the lifetime it was stored with
func (e Entry) Cached() domain.CacheEntry[[]byte] {
	return domain.CacheEntry[[]byte]{
		Data:     e.Payload,
		StoredAt: e.StoredAt,
		TTL:      e.ExpiresAt.Sub(e.StoredAt),
	}
}

type Postgres struct {
	db     *sqlx.DB
	schema string

	nowFunc func() time.Time

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	tracer := otel.Tracer("esportsync/cacherepository/postgres")

	return &Postgres{
		db:     db,
		schema: schema,

		nowFunc: time.Now,

		tracer: tracer,
	}
}

type dbCacheEntry struct {
	CacheKey     string    `db:"cache_key"`
	ResourceKind string    `db:"resource_kind"`
	GameType     *string   `db:"game_type"`
	Payload      []byte    `db:"payload"`
	StoredAt     time.Time `db:"stored_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}

func (p *Postgres) Set(ctx context.Context, entry Entry) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.Set")
	defer span.End()

	var gameType *string
	if entry.Scope.Game != nil {
		game := entry.Scope.Game.String()
		gameType = &game
	}

	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.sync_cache
		(cache_key, resource_kind, game_type, payload, stored_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key)
		DO UPDATE SET
			resource_kind = EXCLUDED.resource_kind,
			game_type = EXCLUDED.game_type,
			payload = EXCLUDED.payload,
			stored_at = EXCLUDED.stored_at,
			expires_at = EXCLUDED.expires_at`,
		pq.QuoteIdentifier(p.schema),
	),
		entry.Key,
		string(entry.Scope.Kind),
		gameType,
		entry.Payload,
		entry.StoredAt,
		entry.ExpiresAt,
	)
	if err != nil {
		err := &domain.PersistenceError{Op: "upsert cache entry", Err: err}
		reporting.Report(ctx, err, map[string]string{
			"key":       entry.Key,
			"kind":      string(entry.Scope.Kind),
			"expiresAt": entry.ExpiresAt.Format(time.RFC3339),
		})
		return err
	}

	return nil
}

// Get returns domain.ErrCacheMiss for missing and expired entries
func (p *Postgres) Get(ctx context.Context, key string) (Entry, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.Get")
	defer span.End()

	var entry dbCacheEntry
	err := p.db.GetContext(ctx, &entry, fmt.Sprintf(`SELECT
		cache_key, resource_kind, game_type, payload, stored_at, expires_at
		FROM %s.sync_cache
		WHERE cache_key = $1 AND expires_at > $2`,
		pq.QuoteIdentifier(p.schema),
	),
		key,
		p.nowFunc(),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, domain.ErrCacheMiss
		}
		err := &domain.PersistenceError{Op: "select cache entry", Err: err}
		reporting.Report(ctx, err, map[string]string{
			"key": key,
		})
		return Entry{}, err
	}

	return fromDBEntry(entry)
}

func (p *Postgres) Invalidate(ctx context.Context, key string) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.Invalidate")
	defer span.End()

	_, err := p.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s.sync_cache WHERE cache_key = $1",
		pq.QuoteIdentifier(p.schema),
	),
		key,
	)
	if err != nil {
		err := &domain.PersistenceError{Op: "delete cache entry", Err: err}
		reporting.Report(ctx, err, map[string]string{
			"key": key,
		})
		return err
	}

	return nil
}

// InvalidatePattern deletes all keys matching the POSIX regular expression pattern
func (p *Postgres) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.InvalidatePattern")
	defer span.End()

	result, err := p.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s.sync_cache WHERE cache_key ~ $1",
		pq.QuoteIdentifier(p.schema),
	),
		pattern,
	)
	if err != nil {
		err := &domain.PersistenceError{Op: "delete cache entries by pattern", Err: err}
		reporting.Report(ctx, err, map[string]string{
			"pattern": pattern,
		})
		return 0, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return removed, nil
}

func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.PurgeExpired")
	defer span.End()

	result, err := p.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s.sync_cache WHERE expires_at <= $1",
		pq.QuoteIdentifier(p.schema),
	),
		p.nowFunc(),
	)
	if err != nil {
		err := &domain.PersistenceError{Op: "purge expired cache entries", Err: err}
		reporting.Report(ctx, err)
		return 0, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return removed, nil
}

func fromDBEntry(entry dbCacheEntry) (Entry, error) {
	scope := domain.CacheScope{Kind: domain.ResourceKind(entry.ResourceKind)}
	if entry.GameType != nil {
		game, err := domain.ParseGameType(*entry.GameType)
		if err != nil {
			return Entry{}, &domain.PersistenceError{Op: "parse cache entry", Err: err}
		}
		scope.Game = &game
	}

	return Entry{
		Key:       entry.CacheKey,
		Scope:     scope,
		Payload:   entry.Payload,
		StoredAt:  entry.StoredAt,
		ExpiresAt: entry.ExpiresAt,
	}, nil
}
