// Package brackets contains the pure pairing engines. Nothing in this
// package touches the database; each strategy receives seeded participants
// and returns a structural proposal for the services layer to persist.
package brackets

import (
	"errors"

	"github.com/riftline/tournament-engine/models"
)

// ErrFormatNotSupported is returned by strategies whose pairing algorithm
// is not implemented (double elimination, round robin).
var ErrFormatNotSupported = errors.New("tournament format not supported")

// SlotProposal is a structural bracket slot to be created.
type SlotProposal struct {
	RoundNumber     int
	BracketPosition int
	IsFinal         bool
}

// MatchProposal is a match to be created. BracketPosition links it to a
// slot proposal for elimination formats; Swiss matches keep it for ordering
// only and are persisted with a nil bracket id.
type MatchProposal struct {
	RoundNumber     int
	BracketPosition int
	Team1ID         *string
	Team2ID         *string
	Status          models.MatchStatus
	Result          *models.MatchResult
	WinnerID        *string
}

// RoundProposal is the output of one generation step: the full tree for
// single elimination, a single round for Swiss.
type RoundProposal struct {
	Format      models.TournamentFormat
	TotalRounds int
	Slots       []SlotProposal
	Matches     []MatchProposal
	ByeCount    int
}

// Seed pairs an opaque team id with its seed number.
type Seed struct {
	TeamID     string
	SeedNumber int
}

// Standing is the slice of participant state the Swiss pairer sorts on.
type Standing struct {
	TeamID     string
	SeedNumber int
	SwissScore int
	Tiebreaker int
}

// PairingStrategy generates pairings for one tournament format. The
// lifecycle and bracket services depend only on this interface, so adding
// a format means one new implementation plus a registry entry.
type PairingStrategy interface {
	Format() models.TournamentFormat

	// GenerateInitial builds the round-1 structure (the whole tree for
	// elimination formats).
	GenerateInitial(seeds []Seed) (*RoundProposal, error)

	// PairRound builds the pairings for a subsequent round from current
	// standings. Elimination formats do not use this path.
	PairRound(standings []Standing, round int) (*RoundProposal, error)
}

var registry = map[models.TournamentFormat]PairingStrategy{
	models.FormatSingleElimination: &SingleElimination{},
	models.FormatSwiss:             &Swiss{},
	models.FormatDoubleElimination: &unsupported{format: models.FormatDoubleElimination},
	models.FormatRoundRobin:        &unsupported{format: models.FormatRoundRobin},
}

// StrategyFor returns the pairing strategy for a format.
func StrategyFor(format models.TournamentFormat) (PairingStrategy, error) {
	s, ok := registry[format]
	if !ok {
		return nil, ErrFormatNotSupported
	}
	return s, nil
}

type unsupported struct {
	format models.TournamentFormat
}

func (u *unsupported) Format() models.TournamentFormat { return u.format }

func (u *unsupported) GenerateInitial([]Seed) (*RoundProposal, error) {
	return nil, ErrFormatNotSupported
}

func (u *unsupported) PairRound([]Standing, int) (*RoundProposal, error) {
	return nil, ErrFormatNotSupported
}
