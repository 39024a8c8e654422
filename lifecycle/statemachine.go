// Package lifecycle defines the tournament lifecycle state machine: the
// full set of states, the fixed transition table, the guard conditions
// checked before a transition, and the per-state capability flags.
//
// Everything here is pure. Persistence lives in the services layer.
package lifecycle

import (
	"fmt"

	"github.com/riftline/tournament-engine/models"
)

// AllStates lists every lifecycle state in rough progression order.
var AllStates = []models.TournamentStatus{
	models.StatusRegistration,
	models.StatusRegistrationClosed,
	models.StatusSeeding,
	models.StatusInProgress,
	models.StatusPaused,
	models.StatusCompleted,
	models.StatusCancelled,
	models.StatusArchived,
}

// transitions is the fixed adjacency table. Any transition not present here
// is illegal. Cancelled is reachable from every non-terminal state.
var transitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusRegistration:       {models.StatusRegistrationClosed, models.StatusCancelled},
	models.StatusRegistrationClosed: {models.StatusSeeding, models.StatusRegistration, models.StatusCancelled},
	models.StatusSeeding:            {models.StatusInProgress, models.StatusRegistrationClosed, models.StatusCancelled},
	models.StatusInProgress:         {models.StatusPaused, models.StatusCompleted, models.StatusCancelled},
	models.StatusPaused:             {models.StatusInProgress, models.StatusCancelled},
	models.StatusCompleted:          {models.StatusArchived},
	models.StatusCancelled:          {models.StatusArchived},
	models.StatusArchived:           {},
}

// GuardContext carries the live facts a transition guard may inspect.
type GuardContext struct {
	CurrentRound      int
	TotalRounds       int
	RegisteredTeams   int
	MinTeams          int
	HasBracket        bool
	HasSeeding        bool
	IncompleteMatches int
}

type guard func(ctx GuardContext) string

var guards = map[string]guard{
	transitionKey(models.StatusRegistrationClosed, models.StatusSeeding): func(ctx GuardContext) string {
		if ctx.RegisteredTeams < ctx.MinTeams {
			return fmt.Sprintf("need at least %d teams, have %d", ctx.MinTeams, ctx.RegisteredTeams)
		}
		return ""
	},
	transitionKey(models.StatusSeeding, models.StatusInProgress): func(ctx GuardContext) string {
		if !ctx.HasSeeding {
			return "seeding must be assigned first"
		}
		return ""
	},
	transitionKey(models.StatusInProgress, models.StatusCompleted): func(ctx GuardContext) string {
		if ctx.IncompleteMatches > 0 {
			return fmt.Sprintf("%d matches still incomplete", ctx.IncompleteMatches)
		}
		return ""
	},
}

func transitionKey(from, to models.TournamentStatus) string {
	return string(from) + "->" + string(to)
}

// IsValidTransition checks the adjacency table only, ignoring guards.
func IsValidTransition(from, to models.TournamentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidTransitions returns the states legally reachable from the given state.
func ValidTransitions(from models.TournamentStatus) []models.TournamentStatus {
	next := transitions[from]
	out := make([]models.TournamentStatus, len(next))
	copy(out, next)
	return out
}

// ValidateTransition checks both the adjacency table and the guard for
// the specific state pair. The returned reason is empty when allowed.
func ValidateTransition(from, to models.TournamentStatus, ctx GuardContext) (bool, string) {
	if !IsValidTransition(from, to) {
		return false, fmt.Sprintf("transition from %q to %q is not allowed", from, to)
	}
	if g, ok := guards[transitionKey(from, to)]; ok {
		if reason := g(ctx); reason != "" {
			return false, reason
		}
	}
	return true, ""
}

// Capabilities are the state-derived action flags exposed to callers.
type Capabilities struct {
	CanRegister        bool `json:"can_register"`
	CanEditSeeding     bool `json:"can_edit_seeding"`
	CanGenerateBracket bool `json:"can_generate_bracket"`
	CanPlayMatches     bool `json:"can_play_matches"`
	CanAdvanceRound    bool `json:"can_advance_round"`
	IsMutable          bool `json:"is_mutable"`
	IsTerminal         bool `json:"is_terminal"`
}

var capabilities = map[models.TournamentStatus]Capabilities{
	models.StatusRegistration:       {CanRegister: true, CanEditSeeding: true, IsMutable: true},
	models.StatusRegistrationClosed: {CanEditSeeding: true, IsMutable: true},
	models.StatusSeeding:            {CanEditSeeding: true, CanGenerateBracket: true, IsMutable: true},
	models.StatusInProgress:         {CanPlayMatches: true, CanAdvanceRound: true, IsMutable: true},
	models.StatusPaused:             {IsMutable: true},
	models.StatusCompleted:          {},
	models.StatusCancelled:          {},
	models.StatusArchived:           {IsTerminal: true},
}

// StateCapabilities returns the capability flags for a state.
func StateCapabilities(state models.TournamentStatus) Capabilities {
	return capabilities[state]
}

// IsKnownState reports whether the given status is part of the machine.
func IsKnownState(state models.TournamentStatus) bool {
	_, ok := transitions[state]
	return ok
}
