package services

import (
	"errors"

	"github.com/riftline/tournament-engine/brackets"
)

// Sentinel errors shared across services and mapped to HTTP statuses in the
// handlers layer.
var (
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")

	ErrValidationFailed = errors.New("validation failed")

	// Lifecycle
	ErrInvalidTransition = errors.New("lifecycle transition not allowed")
	ErrUnknownState      = errors.New("unknown lifecycle state")

	// Seeding
	ErrSeedingLocked  = errors.New("seeding can no longer be modified")
	ErrSeedingInvalid = errors.New("seed assignment is not a dense permutation")

	// Bracket and rounds
	ErrBracketAlreadyExists = errors.New("bracket already generated for this tournament")
	ErrBracketNotGenerated  = errors.New("no bracket generated for this tournament")
	ErrFormatNotSupported   = brackets.ErrFormatNotSupported
	ErrNotEnoughTeams       = errors.New("not enough active teams")
	ErrRoundNotCurrent      = errors.New("round is not the tournament's current round")
	ErrRoundIncomplete      = errors.New("round still has incomplete matches")
	ErrNoRoundToRewind      = errors.New("no completed round to rewind")
	ErrAllRoundsPlayed      = errors.New("all rounds have been played")
	ErrRoundStarted         = errors.New("round already has started matches")

	// Matches
	ErrMatchImmutable    = errors.New("match belongs to a tournament that cannot accept results")
	ErrWinnerNotInMatch  = errors.New("winner is not a team of this match")
	ErrMatchSlotNotReady = errors.New("match is missing a team and cannot be scored")

	// Concurrency: another writer changed the same structure first.
	ErrConcurrencyConflict = errors.New("conflicting concurrent modification")
)
