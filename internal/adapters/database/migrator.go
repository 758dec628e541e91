package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// LatestVersion is the number of the newest file in migrations/
const LatestVersion = 2

type Migrator struct {
	db *sqlx.DB

	logger *slog.Logger
}

func NewDatabaseMigrator(db *sqlx.DB, logger *slog.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the schema if needed and applies every pending migration to it.
// A schema left dirty by an interrupted migration must be repaired by hand.
func (m *Migrator) Migrate(ctx context.Context, schemaName string) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migrate: failed to connect to db: %w", err)
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		return fmt.Errorf("migrate: failed to create schema: %w", err)
	}

	instance, err := newMigrateInstance(ctx, conn, schemaName)
	if err != nil {
		return err
	}
	defer instance.Close()

	logger := m.logger.With("schema", schemaName)

	start := time.Now()
	logger.InfoContext(ctx, "Starting migrations")
	err = instance.Up()

	var dirtyErr migrate.ErrDirty
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.InfoContext(ctx, "Schema is up to date")
	case errors.As(err, &dirtyErr):
		return fmt.Errorf("migrate: schema %s is dirty at version %d: %w", schemaName, dirtyErr.Version, err)
	case err != nil:
		return fmt.Errorf("migrate: failed to migrate: %w", err)
	}

	version, _, err := instance.Version()
	if err != nil {
		return fmt.Errorf("migrate: failed to read schema version: %w", err)
	}
	logger.InfoContext(ctx, "Migrations completed", "version", version, "duration", time.Since(start).String())

	return nil
}

// newMigrateInstance runs the embedded migrations against schemaName over conn.
// Closing the instance closes conn.
func newMigrateInstance(ctx context.Context, conn *sql.Conn, schemaName string) (*migrate.Migrate, error) {
	_, err := conn.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		return nil, fmt.Errorf("migrate: failed to set search path: %w", err)
	}

	migrationSource, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: failed to create driver from embedded migrations: %w", err)
	}

	dbDriver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		DatabaseName: DB_NAME,
		SchemaName:   schemaName,
	})
	if err != nil {
		migrationSource.Close()
		return nil, fmt.Errorf("migrate: failed to create postgres driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", migrationSource, "postgres", dbDriver)
	if err != nil {
		migrationSource.Close()
		dbDriver.Close()
		return nil, fmt.Errorf("migrate: failed to create migration instance: %w", err)
	}

	return instance, nil
}
