package domain

import (
	"fmt"
	"strings"
)

type GameType string

const (
	GameLoL   GameType = "lol"
	GameCS2   GameType = "cs2"
	GameDota2 GameType = "dota2"
)

// AllGames in the order a sync plan visits them
var AllGames = []GameType{GameLoL, GameCS2, GameDota2}

func ParseGameType(raw string) (GameType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lol":
		return GameLoL, nil
	case "cs2", "csgo":
		return GameCS2, nil
	case "dota2":
		return GameDota2, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidGame, raw)
}

// UpstreamSlug is the path segment the esports API uses for the game
func (g GameType) UpstreamSlug() string {
	if g == GameCS2 {
		return "csgo"
	}
	return string(g)
}

func (g GameType) String() string {
	return string(g)
}

// ScopeName is used in cache keys. A nil game is the aggregate over all games.
func ScopeName(game *GameType) string {
	if game == nil {
		return "all"
	}
	return string(*game)
}
