package models

import "time"

// TournamentStatus enumerates the lifecycle states, matching the ENUM in the DB.
type TournamentStatus string

const (
	StatusRegistration       TournamentStatus = "Registration"
	StatusRegistrationClosed TournamentStatus = "Registration_Closed"
	StatusSeeding            TournamentStatus = "Seeding"
	StatusInProgress         TournamentStatus = "In_Progress"
	StatusPaused             TournamentStatus = "Paused"
	StatusCompleted          TournamentStatus = "Completed"
	StatusCancelled          TournamentStatus = "Cancelled"
	StatusArchived           TournamentStatus = "Archived"
)

// TournamentFormat enumerates the supported bracket formats.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "Single_Elimination"
	FormatDoubleElimination TournamentFormat = "Double_Elimination"
	FormatRoundRobin        TournamentFormat = "Round_Robin"
	FormatSwiss             TournamentFormat = "Swiss"
)

// SwissSettings holds the Swiss-specific tunables stored on the tournament row.
type SwissSettings struct {
	Rounds        int  `json:"rounds" db:"swiss_rounds"`
	PointsPerWin  int  `json:"points_per_win" db:"points_per_win"`
	PointsPerDraw int  `json:"points_per_draw" db:"points_per_draw"`
	PointsPerLoss int  `json:"points_per_loss" db:"points_per_loss"`
	TopCutEnabled bool `json:"top_cut_enabled" db:"top_cut_enabled"`
	TopCutSize    int  `json:"top_cut_size" db:"top_cut_size"`
}

// Tournament is the authoritative record for a single competition.
// CurrentRound is mutated only through the round control service, inside
// the same transaction as the structural change that justifies it.
type Tournament struct {
	ID           string           `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Slug         string           `json:"slug" db:"slug"`
	Format       TournamentFormat `json:"format" db:"format"`
	Status       TournamentStatus `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	TotalRounds  int              `json:"total_rounds" db:"total_rounds"`
	MaxTeams     int              `json:"max_teams" db:"max_teams"`
	Swiss        SwissSettings    `json:"swiss"`
	BannerKey    *string          `json:"-" db:"banner_key"`
	BannerURL    *string          `json:"banner_url,omitempty" db:"-"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
