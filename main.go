package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/bootstrap"
	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/monitor"
	"github.com/Amund211/esportsync/internal/ports"
	"github.com/Amund211/esportsync/internal/reporting"
	"github.com/Amund211/esportsync/internal/telemetry"
)

const (
	cacheCleanupInterval = 5 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	if conf.IsProduction() {
		logger = slog.New(logging.NewTraceLogHandler(slog.NewJSONHandler(os.Stdout, nil))).With("instanceID", instanceID)
	}

	if !conf.IsDevelopment() {
		shutdownOTel, err := telemetry.SetupOTelSDK(ctx, "esportsync")
		if err != nil {
			fail("Failed to initialize OpenTelemetry", "error", err.Error())
		}
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized OpenTelemetry")
	}

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	scope, err := config.LoadSyncScope(conf.SyncScopeFile())
	if err != nil {
		fail("Failed to load sync scope", "error", err.Error())
	}

	service, err := bootstrap.New(ctx, conf, scope, logger)
	if err != nil {
		fail("Failed to initialize service", "error", err.Error())
	}
	defer service.Close()

	caches := service.Caches

	getLiveMatches := app.BuildGetLiveMatchesWithCache(caches, service.API, service.Monitor)
	getUpcomingMatches := app.BuildGetUpcomingMatchesWithCache(caches, service.API, service.Monitor)
	getPastMatches := app.BuildGetPastMatchesWithCache(caches, service.API, service.Monitor)
	getTournaments := app.BuildGetTournamentsWithCache(caches, service.API, service.Monitor)
	getTeams := app.BuildGetTeamsWithCache(caches, service.API, service.Monitor)
	getPlayers := app.BuildGetPlayersWithCache(caches, service.API, service.Monitor)
	getOverview := app.BuildGetOverviewWithCache(caches, getLiveMatches, getUpcomingMatches, time.Now)

	prometheusHandler, err := ports.MakePrometheusHandler(monitor.NewCollector(service.Monitor))
	if err != nil {
		fail("Failed to initialize prometheus handler", "error", err.Error())
	}

	mux := http.NewServeMux()

	mux.HandleFunc(
		"GET /v1/{game}/matches/live",
		ports.MakeGetLiveMatchesHandler(
			getLiveMatches,
			logger.With("port", "livematches"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/{game}/matches/upcoming",
		ports.MakeGetUpcomingMatchesHandler(
			getUpcomingMatches,
			logger.With("port", "upcomingmatches"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/{game}/matches/past",
		ports.MakeGetPastMatchesHandler(
			getPastMatches,
			logger.With("port", "pastmatches"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/{game}/tournaments",
		ports.MakeGetTournamentsHandler(
			getTournaments,
			logger.With("port", "tournaments"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/{game}/teams",
		ports.MakeGetTeamsHandler(
			getTeams,
			logger.With("port", "teams"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/{game}/players",
		ports.MakeGetPlayersHandler(
			getPlayers,
			logger.With("port", "players"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/{game}/overview",
		ports.MakeGetOverviewHandler(
			getOverview,
			logger.With("port", "overview"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"POST /admin/sync",
		ports.MakeRunSyncHandler(
			service.RunSync,
			logger.With("port", "runsync"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /admin/sync",
		ports.MakeGetSyncConfigHandler(
			service.Monitor.HourlyLimit(),
			conf.SyncInterval(),
			scope.PerPage,
			logger.With("port", "syncconfig"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /admin/stats",
		ports.MakeGetStatsHandler(
			service.Monitor,
			caches.Stats,
			logger.With("port", "stats"),
			sentryMiddleware,
		),
	)
	mux.Handle("GET /metrics", prometheusHandler)

	backgroundCtx := logging.AddToContext(ctx, logger.With("component", "background"))

	caches.StartCleanup(backgroundCtx, cacheCleanupInterval)
	go app.PurgeExpiredEvery(backgroundCtx, service.Durable, cacheCleanupInterval)

	if conf.SyncInterval() > 0 {
		go app.RunSyncEvery(backgroundCtx, service.RunSync, conf.SyncInterval())
		logger.Info("Scheduled syncs enabled", "interval", conf.SyncInterval().String())
	} else {
		logger.Info("Scheduled syncs disabled")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", conf.Port()),
		Handler: mux,
	}

	shutdownComplete := make(chan struct{})
	go func() {
		defer close(shutdownComplete)
		<-ctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err.Error())
		}
	}()

	logger.Info("Init complete")
	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownComplete
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
