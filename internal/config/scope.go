package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	defaultPerPage        = 50
	maxPerPage            = 100
	defaultPacingInterval = 2 * time.Second
	defaultPacingBurst    = 3
)

// SyncScope is what a sync run covers and how fast it may call upstream
type SyncScope struct {
	Games          []domain.GameType
	Resources      []domain.SyncResource
	PerPage        int
	PacingInterval time.Duration
	PacingBurst    int
}

func DefaultSyncScope() SyncScope {
	return SyncScope{
		Games:          slices.Clone(domain.AllGames),
		Resources:      slices.Clone(domain.DefaultSyncResources),
		PerPage:        defaultPerPage,
		PacingInterval: defaultPacingInterval,
		PacingBurst:    defaultPacingBurst,
	}
}

type rawSyncScope struct {
	Games     []string `yaml:"games"`
	Resources []string `yaml:"resources"`
	PerPage   *int     `yaml:"perPage"`
	Pacing    struct {
		Interval *time.Duration `yaml:"interval"`
		Burst    *int           `yaml:"burst"`
	} `yaml:"pacing"`
}

// ParseSyncScope reads a YAML scope. Omitted fields keep their defaults.
func ParseSyncScope(data []byte) (SyncScope, error) {
	var raw rawSyncScope
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return SyncScope{}, fmt.Errorf("%w: sync scope: %w", ErrInvalidValue, err)
	}

	scope := DefaultSyncScope()

	if len(raw.Games) > 0 {
		scope.Games = make([]domain.GameType, 0, len(raw.Games))
		for _, rawGame := range raw.Games {
			game, err := domain.ParseGameType(rawGame)
			if err != nil {
				return SyncScope{}, fmt.Errorf("%w: sync scope: %w", ErrInvalidValue, err)
			}
			if !slices.Contains(scope.Games, game) {
				scope.Games = append(scope.Games, game)
			}
		}
	}

	if len(raw.Resources) > 0 {
		scope.Resources = make([]domain.SyncResource, 0, len(raw.Resources))
		for _, rawResource := range raw.Resources {
			resource, err := domain.ParseSyncResource(rawResource)
			if err != nil {
				return SyncScope{}, fmt.Errorf("%w: sync scope: %w", ErrInvalidValue, err)
			}
			if !slices.Contains(scope.Resources, resource) {
				scope.Resources = append(scope.Resources, resource)
			}
		}
	}

	if raw.PerPage != nil {
		if *raw.PerPage < 1 || *raw.PerPage > maxPerPage {
			return SyncScope{}, fmt.Errorf("%w: sync scope: perPage must be between 1 and %d", ErrInvalidValue, maxPerPage)
		}
		scope.PerPage = *raw.PerPage
	}

	if raw.Pacing.Interval != nil {
		if *raw.Pacing.Interval < 0 {
			return SyncScope{}, fmt.Errorf("%w: sync scope: pacing interval must not be negative", ErrInvalidValue)
		}
		scope.PacingInterval = *raw.Pacing.Interval
	}

	if raw.Pacing.Burst != nil {
		if *raw.Pacing.Burst < 1 {
			return SyncScope{}, fmt.Errorf("%w: sync scope: pacing burst must be at least 1", ErrInvalidValue)
		}
		scope.PacingBurst = *raw.Pacing.Burst
	}

	return scope, nil
}

// LoadSyncScope reads the scope file at path, or returns the default scope for an empty path
func LoadSyncScope(path string) (SyncScope, error) {
	if path == "" {
		return DefaultSyncScope(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return SyncScope{}, fmt.Errorf("failed to read sync scope file: %w", err)
	}

	return ParseSyncScope(data)
}
