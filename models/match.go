package models

import "time"

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "Scheduled"
	MatchInProgress MatchStatus = "In_Progress"
	MatchCompleted  MatchStatus = "Completed"
)

type MatchResult string

const (
	ResultTeam1Win MatchResult = "Team1_Win"
	ResultTeam2Win MatchResult = "Team2_Win"
	ResultDraw     MatchResult = "Draw"
)

// Match is a playable pairing. BracketID is nil for Swiss matches, which
// carry only a shared round number. A nil team slot is a bye (or an
// undecided feeder slot in later elimination rounds).
//
// Invariants: status Completed implies a non-nil result, and for non-draw
// results WinnerID names the team implied by the result; status In_Progress
// implies result and winner are nil.
type Match struct {
	ID           string      `json:"id" db:"id"`
	TournamentID string      `json:"tournament_id" db:"tournament_id"`
	BracketID    *string     `json:"bracket_id,omitempty" db:"bracket_id"`
	RoundNumber  int         `json:"round_number" db:"round_number"`
	MatchNumber  int         `json:"match_number" db:"match_number"`
	Team1ID      *string     `json:"team1_id" db:"team1_id"`
	Team2ID      *string     `json:"team2_id" db:"team2_id"`
	Team1Score   int         `json:"team1_score" db:"team1_score"`
	Team2Score   int         `json:"team2_score" db:"team2_score"`
	Status       MatchStatus `json:"status" db:"status"`
	Result       *MatchResult `json:"result" db:"result"`
	WinnerID     *string     `json:"winner_id" db:"winner_id"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// IsBye reports whether the match has exactly one team present.
func (m *Match) IsBye() bool {
	return (m.Team1ID == nil) != (m.Team2ID == nil)
}
