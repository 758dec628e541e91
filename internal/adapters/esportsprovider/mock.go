package esportsprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/esportsync/internal/domain"
)

type mockedAPI struct {
	nowFunc func() time.Time
}

// NewMockedAPI returns deterministic made-up data for local development
func NewMockedAPI() EsportsAPI {
	return &mockedAPI{nowFunc: time.Now}
}

func mockedGames(game *domain.GameType) []domain.GameType {
	if game == nil {
		return domain.AllGames
	}
	return []domain.GameType{*game}
}

func mockedID(game domain.GameType, index int) int64 {
	offset := map[domain.GameType]int64{
		domain.GameLoL:   1000,
		domain.GameCS2:   2000,
		domain.GameDota2: 3000,
	}[game]
	return offset + int64(index)
}

func (m *mockedAPI) teams(game domain.GameType) []domain.Team {
	teams := make([]domain.Team, 0, 4)
	for i := range 4 {
		teams = append(teams, domain.Team{
			ID:   mockedID(game, i),
			Name: fmt.Sprintf("%s team %d", game, i+1),
			Slug: fmt.Sprintf("%s-team-%d", game, i+1),
		})
	}
	return teams
}

func (m *mockedAPI) matches(game *domain.GameType, status string, offset time.Duration) []domain.Match {
	now := m.nowFunc().Truncate(time.Hour)

	matches := []domain.Match{}
	for _, g := range mockedGames(game) {
		teams := m.teams(g)
		for i := 0; i < len(teams); i += 2 {
			beginAt := now.Add(offset * time.Duration(i/2+1))
			matches = append(matches, domain.Match{
				ID:            mockedID(g, 100+i),
				Name:          fmt.Sprintf("%s vs %s", teams[i].Name, teams[i+1].Name),
				Status:        status,
				BeginAt:       &beginAt,
				NumberOfGames: 3,
				Opponents: []domain.Opponent{
					{Type: "Team", Opponent: teams[i]},
					{Type: "Team", Opponent: teams[i+1]},
				},
			})
		}
	}
	return matches
}

func (m *mockedAPI) LiveMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error) {
	return m.matches(game, "running", -time.Hour), nil
}

func (m *mockedAPI) UpcomingMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error) {
	return m.matches(game, "not_started", 24*time.Hour), nil
}

func (m *mockedAPI) PastMatches(ctx context.Context, game *domain.GameType, page Page) ([]domain.Match, error) {
	return m.matches(game, "finished", -24*time.Hour), nil
}

func (m *mockedAPI) Tournaments(ctx context.Context, game *domain.GameType, page Page) ([]domain.Tournament, error) {
	tournaments := []domain.Tournament{}
	for _, g := range mockedGames(game) {
		tournaments = append(tournaments, domain.Tournament{
			ID:   mockedID(g, 500),
			Name: fmt.Sprintf("%s championship", g),
			Slug: fmt.Sprintf("%s-championship", g),
		})
	}
	return tournaments, nil
}

func (m *mockedAPI) Teams(ctx context.Context, game *domain.GameType, page Page) ([]domain.Team, error) {
	teams := []domain.Team{}
	for _, g := range mockedGames(game) {
		teams = append(teams, m.teams(g)...)
	}
	return teams, nil
}

func (m *mockedAPI) Players(ctx context.Context, game *domain.GameType, page Page) ([]domain.Player, error) {
	players := []domain.Player{}
	for _, g := range mockedGames(game) {
		for _, team := range m.teams(g) {
			players = append(players, domain.Player{
				ID:          team.ID*10 + 1,
				Name:        fmt.Sprintf("%s player", team.Name),
				CurrentTeam: &team,
			})
		}
	}
	return players, nil
}
