package models

import "time"

// Participant is a (tournament, team) registration with its seed and
// accumulated standings. TeamID is an opaque reference into the roster
// service; this subsystem never dereferences it.
type Participant struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	TeamID       string    `json:"team_id" db:"team_id"`
	SeedNumber   int       `json:"seed_number" db:"seed_number"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RankScore    float64   `json:"rank_score" db:"rank_score"`
	Wins         int       `json:"wins" db:"wins"`
	Losses       int       `json:"losses" db:"losses"`
	Draws        int       `json:"draws" db:"draws"`
	SwissScore   int       `json:"swiss_score" db:"swiss_score"`
	Tiebreaker   int       `json:"tiebreaker_points" db:"tiebreaker_points"`
	Buchholz     int       `json:"buchholz_score" db:"buchholz_score"`
	// Team IDs of opponents already faced, kept so the pairing data can
	// support rematch avoidance even though the default pairer ignores it.
	OpponentsPlayed []string  `json:"opponents_played" db:"opponents_played"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// HasPlayed reports whether the participant has already faced the given team.
func (p *Participant) HasPlayed(teamID string) bool {
	for _, id := range p.OpponentsPlayed {
		if id == teamID {
			return true
		}
	}
	return false
}
