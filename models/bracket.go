package models

import "time"

// Bracket is a structural slot in a single-elimination tree, independent of
// which teams eventually occupy it. The tree shape is fully derivable from
// (RoundNumber, BracketPosition): slot p in round r is fed by slots 2p-1 and
// 2p of round r-1.
type Bracket struct {
	ID              string    `json:"id" db:"id"`
	TournamentID    string    `json:"tournament_id" db:"tournament_id"`
	RoundNumber     int       `json:"round_number" db:"round_number"`
	BracketPosition int       `json:"bracket_position" db:"bracket_position"`
	IsFinal         bool      `json:"is_final" db:"is_final"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
