package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Amund211/esportsync/internal/adapters/budgetstore"
	"github.com/Amund211/esportsync/internal/adapters/cacherepository"
	"github.com/Amund211/esportsync/internal/adapters/database"
	"github.com/Amund211/esportsync/internal/adapters/esportsprovider"
	"github.com/Amund211/esportsync/internal/adapters/esportsrepository"
	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/monitor"
	"github.com/Amund211/esportsync/internal/ratelimiting"
)

const (
	budgetWindowName = "pandascore"
	runLockName      = "sync"

	// A run holding the lock longer than this is assumed dead
	runLockTTL = 15 * time.Minute
)

// Service holds the components shared by the HTTP server and the CLI
type Service struct {
	Config  config.Config
	Scope   config.SyncScope
	Durable *cacherepository.Postgres
	Monitor *monitor.Monitor
	Caches  app.Caches
	API     esportsprovider.EsportsAPI
	RunSync app.RunSync

	db    *sqlx.DB
	redis *redis.Client
}

// New connects to the durable stores and wires the sync orchestrator.
// Close releases the connections.
func New(ctx context.Context, conf config.Config, scope config.SyncScope, logger *slog.Logger) (*Service, error) {
	logger.Info("Initializing database connection")
	db, err := database.NewPostgresDatabaseFromConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Initialized database connection")

	schemaName := database.GetSchemaName(!conf.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	durable := cacherepository.NewPostgres(db, schemaName)
	entities := esportsrepository.NewPostgres(db, schemaName)

	var redisClient *redis.Client
	var lock app.RunLock
	monitorOpts := []monitor.Option{}
	if conf.RedisURL() != "" {
		redisClient, err = budgetstore.NewRedisClient(conf.RedisURL())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			closeAll(db, redisClient)
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}

		monitorOpts = append(monitorOpts, monitor.WithSharedWindow(budgetstore.NewWindow(redisClient, budgetWindowName)))
		lock = budgetstore.NewRunLock(redisClient, runLockName, runLockTTL)
		logger.Info("Using shared request budget and run lock")
	} else {
		lock = app.NewLocalRunLock()
		logger.Info("Using per-instance request budget and run lock")
	}

	requestMonitor := monitor.New(monitorOpts...)
	caches := app.NewCaches(durable, requestMonitor)

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	api, err := esportsprovider.NewPandaScoreOrMock(conf, httpClient)
	if err != nil {
		closeAll(db, redisClient)
		return nil, fmt.Errorf("failed to initialize PandaScore API: %w", err)
	}
	logger.Info("Initialized PandaScore API")

	runSync, err := app.BuildRunSync(app.SyncDeps{
		Scope:   scope,
		API:     api,
		Repo:    entities,
		Caches:  caches,
		Monitor: requestMonitor,
		Pacer:   ratelimiting.NewPacer(scope.PacingInterval, scope.PacingBurst),
		Lock:    lock,
	})
	if err != nil {
		closeAll(db, redisClient)
		return nil, fmt.Errorf("failed to build sync orchestrator: %w", err)
	}

	return &Service{
		Config:  conf,
		Scope:   scope,
		Durable: durable,
		Monitor: requestMonitor,
		Caches:  caches,
		API:     api,
		RunSync: runSync,

		db:    db,
		redis: redisClient,
	}, nil
}

func closeAll(db *sqlx.DB, redisClient *redis.Client) {
	if redisClient != nil {
		redisClient.Close()
	}
	db.Close()
}

func (s *Service) Close() {
	closeAll(s.db, s.redis)
}
