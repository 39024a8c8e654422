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

// MatchUpdateInput carries a partial match update. Nil fields are left
// untouched. An explicit Result is taken verbatim and completes the match,
// which is the only way to record a Draw with unequal scores. ClearResult
// reopens a completed match, wiping its result and reverting its standings
// contribution.
type MatchUpdateInput struct {
	Team1Score  *int                `json:"team1_score"`
	Team2Score  *int                `json:"team2_score"`
	Status      *models.MatchStatus `json:"status"`
	Result      *models.MatchResult `json:"result"`
	WinnerID    *string             `json:"winner_id"`
	ClearResult bool                `json:"clear_result"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID string, filter repositories.ListMatchesFilter) ([]*models.Match, error)
	// UpdateMatch applies a partial update, resolves the result, keeps
	// standings accumulators consistent, and propagates elimination winners
	// into their next-round slot.
	UpdateMatch(ctx context.Context, matchID string, in MatchUpdateInput) (*models.Match, error)
}

type matchService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	audit           *auditor
	hub             EventPublisher
	logger          *slog.Logger
}

func NewMatchService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	logRepo repositories.LogRepository,
	hub EventPublisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		tx:              tx,
		audit:           newAuditor(logRepo, logger),
		hub:             hub,
		logger:          logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchErr(err)
	}
	return m, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID string, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, filter)
}

func (s *matchService) UpdateMatch(ctx context.Context, matchID string, in MatchUpdateInput) (*models.Match, error) {
	var (
		updated      *models.Match
		tournamentID string
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapMatchErr(err)
		}
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, m.TournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		tournamentID = t.ID

		if !lifecycle.StateCapabilities(t.Status).CanPlayMatches {
			return fmt.Errorf("%w: tournament is %s", ErrMatchImmutable, t.Status)
		}
		if m.Team1ID == nil || m.Team2ID == nil {
			return fmt.Errorf("%w: match %s", ErrMatchSlotNotReady, m.ID)
		}

		cfg := scoreConfigOf(t)
		oldDeltas, err := completedDeltas(m, cfg)
		if err != nil {
			return err
		}
		oldWinner := m.WinnerID

		if err := resolveUpdate(m, t, in); err != nil {
			return err
		}

		newDeltas, err := completedDeltas(m, cfg)
		if err != nil {
			return err
		}

		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return mapMatchErr(err)
		}
		if err := s.applyStandingShift(ctx, exec, t.ID, oldDeltas, newDeltas); err != nil {
			return err
		}
		if t.Format == models.FormatSingleElimination && !winnerEqual(oldWinner, m.WinnerID) {
			if err := s.propagateWinner(ctx, exec, t, m); err != nil {
				return err
			}
		}

		s.audit.recordMatch(ctx, exec, t.ID, models.LogMatchUpdated, &m.ID,
			fmt.Sprintf("round %d match %d: %d-%d %s", m.RoundNumber, m.MatchNumber, m.Team1Score, m.Team2Score, m.Status))
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventMatchUpdated, TournamentID: tournamentID, Payload: updated})
	return updated, nil
}

// resolveUpdate mutates the match in place according to the resolver rules:
// an explicit result is used verbatim, next an explicit winner derives the
// result, completing without either derives one from the scores, and
// leaving Completed clears the result.
func resolveUpdate(m *models.Match, t *models.Tournament, in MatchUpdateInput) error {
	if in.Team1Score != nil {
		if *in.Team1Score < 0 {
			return fmt.Errorf("%w: negative score", ErrValidationFailed)
		}
		m.Team1Score = *in.Team1Score
	}
	if in.Team2Score != nil {
		if *in.Team2Score < 0 {
			return fmt.Errorf("%w: negative score", ErrValidationFailed)
		}
		m.Team2Score = *in.Team2Score
	}

	switch {
	case in.ClearResult:
		m.Status = models.MatchScheduled
		m.Result = nil
		m.WinnerID = nil

	case in.Result != nil:
		switch *in.Result {
		case models.ResultTeam1Win:
			m.WinnerID = m.Team1ID
		case models.ResultTeam2Win:
			m.WinnerID = m.Team2ID
		case models.ResultDraw:
			if t.Format != models.FormatSwiss {
				return fmt.Errorf("%w: %s requires a winner", ErrValidationFailed, t.Format)
			}
			m.WinnerID = nil
		default:
			return fmt.Errorf("%w: unknown result %q", ErrValidationFailed, *in.Result)
		}
		if in.WinnerID != nil && !winnerEqual(in.WinnerID, m.WinnerID) {
			return fmt.Errorf("%w: winner %s contradicts result %s", ErrValidationFailed, *in.WinnerID, *in.Result)
		}
		m.Status = models.MatchCompleted
		m.Result = in.Result

	case in.WinnerID != nil:
		result, err := brackets.DeriveResult(m.Team1ID, m.Team2ID, in.WinnerID)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrWinnerNotInMatch, *in.WinnerID)
		}
		m.Status = models.MatchCompleted
		m.Result = result
		m.WinnerID = in.WinnerID

	case in.Status != nil && *in.Status == models.MatchCompleted:
		switch {
		case m.Team1Score > m.Team2Score:
			r := models.ResultTeam1Win
			m.Result = &r
			m.WinnerID = m.Team1ID
		case m.Team2Score > m.Team1Score:
			r := models.ResultTeam2Win
			m.Result = &r
			m.WinnerID = m.Team2ID
		default:
			if t.Format != models.FormatSwiss {
				return fmt.Errorf("%w: %s requires a winner", ErrValidationFailed, t.Format)
			}
			r := models.ResultDraw
			m.Result = &r
			m.WinnerID = nil
		}
		m.Status = models.MatchCompleted

	case in.Status != nil:
		if m.Status == models.MatchCompleted {
			m.Result = nil
			m.WinnerID = nil
		}
		m.Status = *in.Status
	}
	return nil
}

// completedDeltas returns the standings contribution of the match in its
// current form, or nil when it carries no resolved result.
func completedDeltas(m *models.Match, cfg brackets.ScoreConfig) ([]brackets.StandingDelta, error) {
	if m.Status != models.MatchCompleted || m.Result == nil {
		return nil, nil
	}
	return brackets.ResultDeltas(m, cfg)
}

// applyStandingShift reverts the old contribution and applies the new one.
// Deltas cancel exactly, so repeated edits never drift the accumulators.
func (s *matchService) applyStandingShift(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, oldDeltas, newDeltas []brackets.StandingDelta) error {
	if len(oldDeltas) == 0 && len(newDeltas) == 0 {
		return nil
	}
	shift := make([]brackets.StandingDelta, 0, len(oldDeltas)+len(newDeltas))
	for _, d := range oldDeltas {
		shift = append(shift, d.Negate())
	}
	shift = append(shift, newDeltas...)

	for _, d := range shift {
		p, err := s.participantRepo.GetByTeam(ctx, exec, tournamentID, d.TeamID)
		if err != nil {
			return mapParticipantErr(err)
		}
		d.Apply(p)
		if err := s.participantRepo.UpdateStanding(ctx, exec, p); err != nil {
			return mapParticipantErr(err)
		}
	}
	return nil
}

// propagateWinner projects the winner of an elimination match into its
// next-round slot, or clears the slot when the result was reopened.
func (s *matchService) propagateWinner(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
	if m.RoundNumber >= t.TotalRounds {
		return nil
	}
	nextRound, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{RoundNumber: m.RoundNumber + 1})
	if err != nil {
		return err
	}
	nextPos := brackets.NextPosition(m.MatchNumber)
	for _, next := range nextRound {
		if next.MatchNumber != nextPos {
			continue
		}
		if next.Status == models.MatchCompleted {
			return fmt.Errorf("%w: next round match already resolved", ErrConcurrencyConflict)
		}
		return s.matchRepo.SetTeam(ctx, exec, next.ID, brackets.FeedsTeam1(m.MatchNumber), m.WinnerID)
	}
	return nil
}

func scoreConfigOf(t *models.Tournament) brackets.ScoreConfig {
	cfg := brackets.ScoreConfig{
		PointsPerWin:  t.Swiss.PointsPerWin,
		PointsPerDraw: t.Swiss.PointsPerDraw,
		PointsPerLoss: t.Swiss.PointsPerLoss,
	}
	if cfg.PointsPerWin == 0 && cfg.PointsPerDraw == 0 {
		cfg.PointsPerWin = 3
		cfg.PointsPerDraw = 1
	}
	return cfg
}

func winnerEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func mapMatchErr(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

func mapParticipantErr(err error) error {
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return ErrParticipantNotFound
	}
	return err
}
