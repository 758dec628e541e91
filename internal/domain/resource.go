package domain

import (
	"fmt"
	"time"
)

// ResourceKind selects the default TTL of a cache entry
type ResourceKind string

const (
	KindTeams       ResourceKind = "teams"
	KindMatches     ResourceKind = "matches"
	KindLiveMatches ResourceKind = "live_matches"
	KindTournaments ResourceKind = "tournaments"
	KindOverview    ResourceKind = "overview"
	KindPlayers     ResourceKind = "players"
)

var kindTTLs = map[ResourceKind]time.Duration{
	KindTeams:       30 * time.Minute,
	KindMatches:     5 * time.Minute,
	KindLiveMatches: 30 * time.Second,
	KindTournaments: 60 * time.Minute,
	KindOverview:    10 * time.Minute,
	KindPlayers:     30 * time.Minute,
}

// TTL returns the default time to live for entries of this kind.
// Unknown kinds get the shortest TTL so they are never served stale for long.
func (k ResourceKind) TTL() time.Duration {
	ttl, ok := kindTTLs[k]
	if !ok {
		return kindTTLs[KindLiveMatches]
	}
	return ttl
}

func (k ResourceKind) IsKnown() bool {
	_, ok := kindTTLs[k]
	return ok
}

// SyncResource is a resource type the sync orchestrator can refresh
type SyncResource string

const (
	SyncTeams       SyncResource = "teams"
	SyncMatches     SyncResource = "matches" // upcoming matches
	SyncLiveMatches SyncResource = "live_matches"
	SyncPastMatches SyncResource = "past_matches"
	SyncTournaments SyncResource = "tournaments"
	SyncPlayers     SyncResource = "players"
)

var DefaultSyncResources = []SyncResource{SyncTeams, SyncMatches}

func ParseSyncResource(raw string) (SyncResource, error) {
	switch r := SyncResource(raw); r {
	case SyncTeams, SyncMatches, SyncLiveMatches, SyncPastMatches, SyncTournaments, SyncPlayers:
		return r, nil
	}
	return "", fmt.Errorf("unknown sync resource: %s", raw)
}

// Kind is the cache kind the resource is stored under
func (r SyncResource) Kind() ResourceKind {
	switch r {
	case SyncTeams:
		return KindTeams
	case SyncLiveMatches:
		return KindLiveMatches
	case SyncTournaments:
		return KindTournaments
	case SyncPlayers:
		return KindPlayers
	}
	return KindMatches
}

// CacheKey is shared by the cache-aware accessors and the sync orchestrator,
// so a sync run warms exactly the entries the accessors read.
func (r SyncResource) CacheKey(game *GameType) string {
	prefix := string(r)
	if r == SyncMatches {
		prefix = "upcoming_matches"
	}
	return fmt.Sprintf("%s_%s", prefix, ScopeName(game))
}

func OverviewCacheKey(game GameType) string {
	return fmt.Sprintf("overview_%s", game)
}

// CacheScope are the columns a durable cache entry is scoped by
type CacheScope struct {
	Kind ResourceKind
	Game *GameType
}
