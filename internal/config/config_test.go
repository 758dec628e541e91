package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/stretchr/testify/require"
)

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

var requiredVariablesExceptEnv = []string{"PANDASCORE_API_TOKEN", "DB_HOST", "DB_PASSWORD", "DB_USERNAME", "SENTRY_DSN"}

var optionalVariables = []string{"REDIS_URL", "PORT", "SYNC_INTERVAL", "SYNC_SCOPE_FILE", "UPSTREAM_TIMEOUT"}

func clearOptional(t *testing.T) {
	t.Helper()
	for _, variable := range optionalVariables {
		t.Setenv(variable, "")
	}
}

func TestGetConfig(t *testing.T) {
	compareConfig := func(token, host, username, password, sentryDSN string, env environment, conf config.Config) {
		t.Helper()
		require.Equal(t, token, conf.PandaScoreAPIToken())
		require.Equal(t, host, conf.DBHost())
		require.Equal(t, username, conf.DBUsername())
		require.Equal(t, password, conf.DBPassword())
		require.Equal(t, sentryDSN, conf.SentryDSN())
		require.Equal(t, env == production, conf.IsProduction())
		require.Equal(t, env == staging, conf.IsStaging())
		require.Equal(t, env == development, conf.IsDevelopment())
	}

	t.Run("ensure base environment is clean", func(t *testing.T) {
		t.Run("environment is missing", func(t *testing.T) {
			// ESPORTSYNC_ENVIRONMENT is required, so this should fail
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrMissingRequiredValue)
		})

		t.Run("development environment should be empty", func(t *testing.T) {
			t.Setenv("ESPORTSYNC_ENVIRONMENT", "development")
			clearOptional(t)

			conf, err := config.ConfigFromEnv()
			require.NoError(t, err)
			compareConfig("", "", "", "", "", development, conf)

			require.Equal(t, "8080", conf.Port())
			require.Equal(t, 30*time.Minute, conf.SyncInterval())
			require.Equal(t, 10*time.Second, conf.UpstreamTimeout())
			require.Empty(t, conf.RedisURL())
			require.Empty(t, conf.SyncScopeFile())
		})
	})

	t.Run("invalid environment", func(t *testing.T) {
		t.Setenv("ESPORTSYNC_ENVIRONMENT", "prod")

		_, err := config.ConfigFromEnv()
		require.ErrorIs(t, err, config.ErrInvalidValue)
	})

	t.Run("values are read correctly", func(t *testing.T) {
		for _, variable := range requiredVariablesExceptEnv {
			t.Setenv(variable, variable)
		}
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("PORT", "9000")
		t.Setenv("SYNC_INTERVAL", "15m")
		t.Setenv("SYNC_SCOPE_FILE", "/etc/esportsync/scope.yaml")
		t.Setenv("UPSTREAM_TIMEOUT", "5s")

		for _, env := range []environment{production, staging, development} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("ESPORTSYNC_ENVIRONMENT", string(env))

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)
				compareConfig("PANDASCORE_API_TOKEN", "DB_HOST", "DB_USERNAME", "DB_PASSWORD", "SENTRY_DSN", env, conf)

				require.Equal(t, "redis://localhost:6379/0", conf.RedisURL())
				require.Equal(t, "9000", conf.Port())
				require.Equal(t, 15*time.Minute, conf.SyncInterval())
				require.Equal(t, "/etc/esportsync/scope.yaml", conf.SyncScopeFile())
				require.Equal(t, 5*time.Second, conf.UpstreamTimeout())
				require.NotContains(t, conf.NonSensitiveString(), "PANDASCORE_API_TOKEN")
				require.NotContains(t, conf.NonSensitiveString(), "DB_PASSWORD")
			})
		}
	})

	t.Run("sync interval 0 disables scheduled syncs", func(t *testing.T) {
		t.Setenv("ESPORTSYNC_ENVIRONMENT", "development")
		clearOptional(t)
		t.Setenv("SYNC_INTERVAL", "0")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		require.Zero(t, conf.SyncInterval())
	})

	t.Run("invalid durations", func(t *testing.T) {
		for _, c := range []struct {
			variable string
			value    string
		}{
			{variable: "SYNC_INTERVAL", value: "often"},
			{variable: "SYNC_INTERVAL", value: "-5m"},
			{variable: "UPSTREAM_TIMEOUT", value: "10"},
			{variable: "UPSTREAM_TIMEOUT", value: "0"},
		} {
			t.Run(c.variable+"="+c.value, func(t *testing.T) {
				t.Setenv("ESPORTSYNC_ENVIRONMENT", "development")
				clearOptional(t)
				t.Setenv(c.variable, c.value)

				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		for _, variable := range requiredVariablesExceptEnv {
			t.Setenv(variable, "placeholder_value")
		}

		for _, env := range []environment{production, staging} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("ESPORTSYNC_ENVIRONMENT", string(env))

				for _, variable := range requiredVariablesExceptEnv {
					t.Run(variable, func(t *testing.T) {
						t.Setenv(variable, "")

						_, err := config.ConfigFromEnv()
						require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					})
				}
			})
		}
	})
}

func TestSyncScope(t *testing.T) {
	t.Parallel()

	t.Run("default", func(t *testing.T) {
		t.Parallel()

		scope, err := config.LoadSyncScope("")
		require.NoError(t, err)
		require.Equal(t, config.SyncScope{
			Games:          []domain.GameType{domain.GameLoL, domain.GameCS2, domain.GameDota2},
			Resources:      []domain.SyncResource{domain.SyncTeams, domain.SyncMatches},
			PerPage:        50,
			PacingInterval: 2 * time.Second,
			PacingBurst:    3,
		}, scope)
	})

	t.Run("full file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "scope.yaml")
		err := os.WriteFile(path, []byte(`
games: [dota2, csgo, cs2]
resources:
  - live_matches
  - tournaments
  - teams
perPage: 100
pacing:
  interval: 500ms
  burst: 5
`), 0o600)
		require.NoError(t, err)

		scope, err := config.LoadSyncScope(path)
		require.NoError(t, err)
		require.Equal(t, config.SyncScope{
			Games:          []domain.GameType{domain.GameDota2, domain.GameCS2},
			Resources:      []domain.SyncResource{domain.SyncLiveMatches, domain.SyncTournaments, domain.SyncTeams},
			PerPage:        100,
			PacingInterval: 500 * time.Millisecond,
			PacingBurst:    5,
		}, scope)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()

		scope, err := config.ParseSyncScope([]byte("games: [lol]\n"))
		require.NoError(t, err)
		require.Equal(t, []domain.GameType{domain.GameLoL}, scope.Games)
		require.Equal(t, []domain.SyncResource{domain.SyncTeams, domain.SyncMatches}, scope.Resources)
		require.Equal(t, 2*time.Second, scope.PacingInterval)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{
			"games: [starcraft]",
			"resources: [heroes]",
			"perPage: 0",
			"perPage: 101",
			"pacing:\n  burst: 0",
			"pacing:\n  interval: -1s",
			"games: {not: a list}",
		} {
			t.Run(raw, func(t *testing.T) {
				t.Parallel()

				_, err := config.ParseSyncScope([]byte(raw))
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := config.LoadSyncScope(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
