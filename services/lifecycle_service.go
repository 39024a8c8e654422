package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/lifecycle"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

// MinTeamsToStart is the smallest field a tournament can close registration
// with.
const MinTeamsToStart = 2

// LifecycleView is the state snapshot returned to callers: the current
// state plus everything derivable from it.
type LifecycleView struct {
	TournamentID     string                    `json:"tournament_id"`
	Status           models.TournamentStatus   `json:"status"`
	ValidTransitions []models.TournamentStatus `json:"valid_transitions"`
	Capabilities     lifecycle.Capabilities    `json:"capabilities"`
	CurrentRound     int                       `json:"current_round"`
	TotalRounds      int                       `json:"total_rounds"`
}

type LifecycleService interface {
	GetLifecycle(ctx context.Context, tournamentID string) (*LifecycleView, error)
	// Transition moves a tournament to the target state after checking the
	// transition table and the guard for that state pair against live data.
	// Entering In_Progress generates the round-1 structure if none exists.
	// A non-empty reason is carried into the audit trail.
	Transition(ctx context.Context, tournamentID string, target models.TournamentStatus, reason string) (*LifecycleView, error)
}

type lifecycleService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	audit           *auditor
	hub             EventPublisher
	logger          *slog.Logger
}

func NewLifecycleService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	logRepo repositories.LogRepository,
	hub EventPublisher,
	logger *slog.Logger,
) LifecycleService {
	return &lifecycleService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		tx:              tx,
		audit:           newAuditor(logRepo, logger),
		hub:             hub,
		logger:          logger,
	}
}

func (s *lifecycleService) GetLifecycle(ctx context.Context, tournamentID string) (*LifecycleView, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentErr(err)
	}
	return lifecycleViewOf(t), nil
}

func (s *lifecycleService) Transition(ctx context.Context, tournamentID string, target models.TournamentStatus, reason string) (*LifecycleView, error) {
	if !lifecycle.IsKnownState(target) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, target)
	}

	var (
		view         *LifecycleView
		rejectionMsg string
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}

		guardCtx, err := s.buildGuardContext(ctx, exec, t)
		if err != nil {
			return err
		}
		if ok, cause := lifecycle.ValidateTransition(t.Status, target, guardCtx); !ok {
			rejectionMsg = transitionDetails(fmt.Sprintf("%s -> %s: %s", t.Status, target, cause), reason)
			return fmt.Errorf("%w: %s", ErrInvalidTransition, cause)
		}

		from := t.Status
		if target == models.StatusInProgress && from == models.StatusSeeding {
			if err := s.ensureRoundOne(ctx, exec, t); err != nil {
				return err
			}
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, target); err != nil {
			return err
		}
		t.Status = target

		s.audit.record(ctx, exec, t.ID, models.LogStateChanged, transitionDetails(fmt.Sprintf("%s -> %s", from, target), reason))
		if target == models.StatusCompleted {
			s.audit.record(ctx, exec, t.ID, models.LogTournamentCompleted, "all matches resolved")
		}
		view = lifecycleViewOf(t)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) && rejectionMsg != "" {
			// Rejections are audited outside the rolled-back transaction.
			s.audit.record(ctx, nil, tournamentID, models.LogStateChangeRejected, rejectionMsg)
		}
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventStateChanged, TournamentID: tournamentID, Payload: view})
	s.logger.Info("tournament state changed",
		slog.String("tournament_id", tournamentID),
		slog.String("status", string(view.Status)))
	return view, nil
}

// buildGuardContext gathers the live facts the transition guards inspect.
func (s *lifecycleService) buildGuardContext(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (lifecycle.GuardContext, error) {
	participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, true)
	if err != nil {
		return lifecycle.GuardContext{}, err
	}
	incomplete, err := s.matchRepo.CountIncomplete(ctx, exec, t.ID)
	if err != nil {
		return lifecycle.GuardContext{}, err
	}
	hasBracket, err := s.bracketRepo.ExistsForTournament(ctx, exec, t.ID)
	if err != nil {
		return lifecycle.GuardContext{}, err
	}

	return lifecycle.GuardContext{
		CurrentRound:      t.CurrentRound,
		TotalRounds:       t.TotalRounds,
		RegisteredTeams:   len(participants),
		MinTeams:          MinTeamsToStart,
		HasBracket:        hasBracket,
		HasSeeding:        validateDenseSeeding(participants) == nil && len(participants) > 0,
		IncompleteMatches: incomplete,
	}, nil
}

// ensureRoundOne generates the initial structure when the tournament enters
// play without one, and advances the round counter to 1. Re-entering play
// from Paused never lands here, so the operation stays idempotent.
func (s *lifecycleService) ensureRoundOne(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	exists, err := structureExists(ctx, exec, t, s.bracketRepo, s.matchRepo)
	if err != nil {
		return err
	}
	totalRounds := t.TotalRounds

	if !exists {
		participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, true)
		if err != nil {
			return err
		}
		proposal, err := buildInitialStructure(ctx, exec, t, participants, s.bracketRepo, s.matchRepo)
		if err != nil {
			return err
		}
		created, err := persistStructure(ctx, exec, t, proposal, s.bracketRepo, s.matchRepo)
		if err != nil {
			return err
		}
		if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, created, false); err != nil {
			return err
		}
		totalRounds = structureTotalRounds(t, proposal)
		s.audit.record(ctx, exec, t.ID, models.LogBracketGenerated,
			fmt.Sprintf("format=%s rounds=%d matches=%d (on start)", t.Format, totalRounds, len(proposal.Matches)))
	}

	if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, 1, totalRounds); err != nil {
		return err
	}
	t.CurrentRound = 1
	t.TotalRounds = totalRounds
	return nil
}

// transitionDetails appends the caller-supplied reason to an audit line.
func transitionDetails(base, reason string) string {
	if reason == "" {
		return base
	}
	return fmt.Sprintf("%s (reason: %s)", base, reason)
}

func lifecycleViewOf(t *models.Tournament) *LifecycleView {
	return &LifecycleView{
		TournamentID:     t.ID,
		Status:           t.Status,
		ValidTransitions: lifecycle.ValidTransitions(t.Status),
		Capabilities:     lifecycle.StateCapabilities(t.Status),
		CurrentRound:     t.CurrentRound,
		TotalRounds:      t.TotalRounds,
	}
}
