package database

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestMigrator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping migrator tests in short mode.")
	}
	t.Parallel()

	db, err := NewPostgresDatabase(t.Context(), LOCAL_CONNECTION_STRING)
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	freshSchema := func(t *testing.T, db *sqlx.DB, schemaName string) {
		t.Helper()
		db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName)))
	}

	t.Run("creates every table and is idempotent", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		schemaName := "migrate_idempotent"
		freshSchema(t, db, schemaName)

		migrator := NewDatabaseMigrator(db, logger)
		require.NoError(t, migrator.Migrate(ctx, schemaName))
		require.NoError(t, migrator.Migrate(ctx, schemaName))

		var tables []string
		err := db.SelectContext(ctx, &tables, "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name", schemaName)
		require.NoError(t, err)
		require.Equal(t, []string{"matches", "players", "schema_migrations", "sync_cache", "teams", "tournaments"}, tables)

		var version int
		err = db.GetContext(ctx, &version, fmt.Sprintf("SELECT version FROM %s.schema_migrations", pq.QuoteIdentifier(schemaName)))
		require.NoError(t, err)
		require.Equal(t, LatestVersion, version)
	})

	t.Run("migrate up and down", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		schemaName := "migrate_up_down"
		freshSchema(t, db, schemaName)

		err := NewDatabaseMigrator(db, logger).Migrate(ctx, schemaName)
		require.NoError(t, err, "error migrating up")

		conn, err := db.Conn(ctx)
		require.NoError(t, err)

		instance, err := newMigrateInstance(ctx, conn, schemaName)
		require.NoError(t, err)
		defer instance.Close()

		err = instance.Down()
		require.NoError(t, err, "error migrating down") // Should not even be ErrNoChange
	})

	t.Run("dirty schema is refused", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		schemaName := "migrate_dirty"
		freshSchema(t, db, schemaName)

		migrator := NewDatabaseMigrator(db, logger)
		require.NoError(t, migrator.Migrate(ctx, schemaName))

		db.MustExec(fmt.Sprintf("UPDATE %s.schema_migrations SET version = 1, dirty = true", pq.QuoteIdentifier(schemaName)))

		err := migrator.Migrate(ctx, schemaName)
		require.ErrorContains(t, err, "dirty at version 1")
	})
}
