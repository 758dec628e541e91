package esportsrepository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/reporting"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db     *sqlx.DB
	schema string

	nowFunc func() time.Time

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	tracer := otel.Tracer("esportsync/esportsrepository/postgres")

	return &Postgres{
		db:     db,
		schema: schema,

		nowFunc: time.Now,

		tracer: tracer,
	}
}

type dbEntity struct {
	GameType  string     `db:"game_type"`
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Status    string     `db:"status"`
	BeginAt   *time.Time `db:"begin_at"`
	Data      []byte     `db:"data"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (p *Postgres) StoreTeams(ctx context.Context, game domain.GameType, teams []domain.Team) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreTeams")
	defer span.End()

	return store(ctx, p, span, "teams", game, teams, func(team domain.Team) dbEntity {
		return dbEntity{ID: team.ID, Name: team.Name}
	})
}

func (p *Postgres) StoreMatches(ctx context.Context, game domain.GameType, matches []domain.Match) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreMatches")
	defer span.End()

	return store(ctx, p, span, "matches", game, matches, func(match domain.Match) dbEntity {
		return dbEntity{ID: match.ID, Name: match.Name, Status: match.Status, BeginAt: match.BeginAt}
	})
}

func (p *Postgres) StoreTournaments(ctx context.Context, game domain.GameType, tournaments []domain.Tournament) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreTournaments")
	defer span.End()

	return store(ctx, p, span, "tournaments", game, tournaments, func(tournament domain.Tournament) dbEntity {
		return dbEntity{ID: tournament.ID, Name: tournament.Name}
	})
}

func (p *Postgres) StorePlayers(ctx context.Context, game domain.GameType, players []domain.Player) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StorePlayers")
	defer span.End()

	return store(ctx, p, span, "players", game, players, func(player domain.Player) dbEntity {
		return dbEntity{ID: player.ID, Name: player.Name}
	})
}

func store[T any](ctx context.Context, p *Postgres, span trace.Span, table string, game domain.GameType, records []T, toEntity func(T) dbEntity) error {
	span.SetAttributes(
		attribute.String("table", table),
		attribute.String("game", game.String()),
		attribute.Int("count", len(records)),
	)

	if len(records) == 0 {
		return nil
	}

	now := p.nowFunc()
	entities := make([]dbEntity, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			err := &domain.PersistenceError{Op: fmt.Sprintf("marshal %s", table), Err: err}
			reporting.Report(ctx, err)
			return err
		}

		entity := toEntity(record)
		entity.GameType = game.String()
		entity.Data = data
		entity.UpdatedAt = now
		entities = append(entities, entity)
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := &domain.PersistenceError{Op: "start transaction", Err: err}
		reporting.Report(ctx, err)
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := &domain.PersistenceError{Op: "set search path", Err: err}
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(game_type, id, name, data, updated_at)
		VALUES (:game_type, :id, :name, :data, :updated_at)
		ON CONFLICT (game_type, id)
		DO UPDATE SET
			name = EXCLUDED.name,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		pq.QuoteIdentifier(table),
	)
	if table == "matches" {
		query = `INSERT INTO matches
		(game_type, id, name, status, begin_at, data, updated_at)
		VALUES (:game_type, :id, :name, :status, :begin_at, :data, :updated_at)
		ON CONFLICT (game_type, id)
		DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			begin_at = EXCLUDED.begin_at,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`
	}

	for _, entity := range entities {
		_, err = txx.NamedExecContext(ctx, query, entity)
		if err != nil {
			err := &domain.PersistenceError{Op: fmt.Sprintf("upsert %s", table), Err: err}
			reporting.Report(ctx, err, map[string]string{
				"game": game.String(),
				"id":   fmt.Sprintf("%d", entity.ID),
			})
			return err
		}
	}

	err = txx.Commit()
	if err != nil {
		err := &domain.PersistenceError{Op: "commit transaction", Err: err}
		reporting.Report(ctx, err)
		return err
	}

	return nil
}
