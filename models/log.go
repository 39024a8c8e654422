package models

import "time"

// Log actions recorded by the engine.
const (
	LogBracketGenerated    = "BRACKET_GENERATED"
	LogBracketReset        = "BRACKET_RESET"
	LogRoundRegenerated    = "ROUND_REGENERATED"
	LogRoundAdvanced       = "ROUND_ADVANCED"
	LogRoundRewound        = "ROUND_REWOUND"
	LogPairingsGenerated   = "PAIRINGS_GENERATED"
	LogMatchUpdated        = "MATCH_UPDATED"
	LogSeedingUpdated      = "SEEDING_UPDATED"
	LogStateChanged        = "STATE_CHANGED"
	LogStateChangeRejected = "STATE_CHANGE_REJECTED"
	LogTournamentCompleted = "TOURNAMENT_COMPLETED"
)

// Log is an append-only audit record of a structural action. It is
// write-only from the engine's perspective and never read back to make
// decisions.
type Log struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Action       string    `json:"action" db:"action"`
	MatchID      *string   `json:"match_id,omitempty" db:"match_id"`
	Details      string    `json:"details" db:"details"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
