package esportsrepository

import (
	"context"
	"sync"

	"github.com/Amund211/esportsync/internal/domain"
)

type entityKey struct {
	game domain.GameType
	id   int64
}

// Stub keeps the latest version of every entity in memory
type Stub struct {
	mu          sync.Mutex
	teams       map[entityKey]domain.Team
	matches     map[entityKey]domain.Match
	tournaments map[entityKey]domain.Tournament
	players     map[entityKey]domain.Player
}

func NewStub() *Stub {
	return &Stub{
		teams:       make(map[entityKey]domain.Team),
		matches:     make(map[entityKey]domain.Match),
		tournaments: make(map[entityKey]domain.Tournament),
		players:     make(map[entityKey]domain.Player),
	}
}

func (s *Stub) StoreTeams(ctx context.Context, game domain.GameType, teams []domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, team := range teams {
		s.teams[entityKey{game: game, id: team.ID}] = team
	}
	return nil
}

func (s *Stub) StoreMatches(ctx context.Context, game domain.GameType, matches []domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, match := range matches {
		s.matches[entityKey{game: game, id: match.ID}] = match
	}
	return nil
}

func (s *Stub) StoreTournaments(ctx context.Context, game domain.GameType, tournaments []domain.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tournament := range tournaments {
		s.tournaments[entityKey{game: game, id: tournament.ID}] = tournament
	}
	return nil
}

func (s *Stub) StorePlayers(ctx context.Context, game domain.GameType, players []domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, player := range players {
		s.players[entityKey{game: game, id: player.ID}] = player
	}
	return nil
}

// Count returns the number of stored entities of a resource for a game
func (s *Stub) Count(resource domain.SyncResource, game domain.GameType) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	countGame := func(key entityKey) {
		if key.game == game {
			count++
		}
	}

	switch resource {
	case domain.SyncTeams:
		for key := range s.teams {
			countGame(key)
		}
	case domain.SyncMatches, domain.SyncLiveMatches, domain.SyncPastMatches:
		for key := range s.matches {
			countGame(key)
		}
	case domain.SyncTournaments:
		for key := range s.tournaments {
			countGame(key)
		}
	case domain.SyncPlayers:
		for key := range s.players {
			countGame(key)
		}
	}
	return count
}
