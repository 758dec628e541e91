package domain

import "time"

type VideoGame struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type League struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ImageURL *string `json:"image_url"`
}

type Team struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Acronym   *string    `json:"acronym"`
	Slug      string     `json:"slug"`
	Location  *string    `json:"location"`
	ImageURL  *string    `json:"image_url"`
	VideoGame *VideoGame `json:"current_videogame,omitempty"`
}

type Opponent struct {
	Type     string `json:"type"`
	Opponent Team   `json:"opponent"`
}

type MatchResult struct {
	TeamID int64 `json:"team_id"`
	Score  int   `json:"score"`
}

type Match struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Status        string        `json:"status"`
	ScheduledAt   *time.Time    `json:"scheduled_at"`
	BeginAt       *time.Time    `json:"begin_at"`
	EndAt         *time.Time    `json:"end_at"`
	NumberOfGames int           `json:"number_of_games"`
	WinnerID      *int64        `json:"winner_id"`
	Opponents     []Opponent    `json:"opponents"`
	Results       []MatchResult `json:"results"`
	League        *League       `json:"league,omitempty"`
	TournamentID  *int64        `json:"tournament_id"`
	VideoGame     *VideoGame    `json:"videogame,omitempty"`
}

type Tournament struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	BeginAt   *time.Time `json:"begin_at"`
	EndAt     *time.Time `json:"end_at"`
	Tier      *string    `json:"tier"`
	PrizePool *string    `json:"prizepool"`
	League    *League    `json:"league,omitempty"`
	VideoGame *VideoGame `json:"videogame,omitempty"`
}

type Player struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Role        *string `json:"role"`
	Nationality *string `json:"nationality"`
	ImageURL    *string `json:"image_url"`
	CurrentTeam *Team   `json:"current_team,omitempty"`
}

// Overview summarizes what is happening in a game right now
type Overview struct {
	Game            GameType  `json:"game"`
	LiveMatches     []Match   `json:"liveMatches"`
	UpcomingMatches []Match   `json:"upcomingMatches"`
	GeneratedAt     time.Time `json:"generatedAt"`
}
