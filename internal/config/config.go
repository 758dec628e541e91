package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultPort            = "8080"
	defaultSyncInterval    = 30 * time.Minute
	defaultUpstreamTimeout = 10 * time.Second
)

type Config struct {
	pandaScoreAPIToken string
	dBHost             string
	dBPassword         string
	dBUsername         string
	sentryDSN          string
	redisURL           string
	port               string
	syncInterval       time.Duration
	syncScopeFile      string
	upstreamTimeout    time.Duration
	env                environment
}

func (c *Config) PandaScoreAPIToken() string {
	return c.pandaScoreAPIToken
}

// DBHost is a hostname or the directory of a unix socket
func (c *Config) DBHost() string {
	return c.dBHost
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

// RedisURL is empty when the budget should only be tracked per instance
func (c *Config) RedisURL() string {
	return c.redisURL
}

func (c *Config) Port() string {
	return c.port
}

// SyncInterval is zero when scheduled syncs are disabled
func (c *Config) SyncInterval() time.Duration {
	return c.syncInterval
}

func (c *Config) SyncScopeFile() string {
	return c.syncScopeFile
}

func (c *Config) UpstreamTimeout() time.Duration {
	return c.upstreamTimeout
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, syncInterval: %s, syncScopeFile: %q, upstreamTimeout: %s, redis: %t, ...}",
		string(c.env),
		c.port,
		c.syncInterval,
		c.syncScopeFile,
		c.upstreamTimeout,
		c.redisURL != "",
	)
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	return d, nil
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("ESPORTSYNC_ENVIRONMENT")
	if !ok {
		return missingKey("ESPORTSYNC_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: ESPORTSYNC_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	pandaScoreAPIToken := os.Getenv("PANDASCORE_API_TOKEN")
	dbHost := os.Getenv("DB_HOST")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")
	redisURL := os.Getenv("REDIS_URL")
	syncScopeFile := os.Getenv("SYNC_SCOPE_FILE")

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	syncInterval, err := durationFromEnv("SYNC_INTERVAL", defaultSyncInterval)
	if err != nil {
		return Config{}, err
	}

	upstreamTimeout, err := durationFromEnv("UPSTREAM_TIMEOUT", defaultUpstreamTimeout)
	if err != nil {
		return Config{}, err
	}
	if upstreamTimeout == 0 {
		return Config{}, fmt.Errorf("%w: UPSTREAM_TIMEOUT must be positive", ErrInvalidValue)
	}

	if env == production || env == staging {
		if pandaScoreAPIToken == "" {
			return missingKey("PANDASCORE_API_TOKEN")
		}
		if dbHost == "" {
			return missingKey("DB_HOST")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		pandaScoreAPIToken: pandaScoreAPIToken,
		dBHost:             dbHost,
		dBPassword:         dbPassword,
		dBUsername:         dbUsername,
		sentryDSN:          sentryDSN,
		redisURL:           redisURL,
		port:               port,
		syncInterval:       syncInterval,
		syncScopeFile:      syncScopeFile,
		upstreamTimeout:    upstreamTimeout,
		env:                env,
	}, nil
}
