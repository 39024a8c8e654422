package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

type SwissService interface {
	// GeneratePairings builds the pairings for the next Swiss round. The
	// requested round must be exactly current_round+1, within the round
	// budget, and the current round must be fully resolved.
	GeneratePairings(ctx context.Context, tournamentID string, round int) ([]*models.Match, error)
	// Standings returns participants ordered by score, tiebreaker, seed.
	Standings(ctx context.Context, tournamentID string) ([]*models.Participant, error)
}

type swissService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	audit           *auditor
	hub             EventPublisher
	logger          *slog.Logger
}

func NewSwissService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	logRepo repositories.LogRepository,
	hub EventPublisher,
	logger *slog.Logger,
) SwissService {
	return &swissService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		tx:              tx,
		audit:           newAuditor(logRepo, logger),
		hub:             hub,
		logger:          logger,
	}
}

func (s *swissService) GeneratePairings(ctx context.Context, tournamentID string, round int) ([]*models.Match, error) {
	var created []*models.Match

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if t.Format != models.FormatSwiss {
			return fmt.Errorf("%w: %s", ErrFormatNotSupported, t.Format)
		}
		if t.Status != models.StatusInProgress {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, t.Status)
		}
		if round != t.CurrentRound+1 {
			return fmt.Errorf("%w: requested %d, next is %d", ErrRoundNotCurrent, round, t.CurrentRound+1)
		}
		if t.TotalRounds > 0 && round > t.TotalRounds {
			return fmt.Errorf("%w: %d of %d", ErrAllRoundsPlayed, round-1, t.TotalRounds)
		}

		if t.CurrentRound > 0 {
			incomplete, err := s.matchRepo.CountIncompleteForRound(ctx, exec, t.ID, t.CurrentRound)
			if err != nil {
				return err
			}
			if incomplete > 0 {
				return fmt.Errorf("%w: %d matches open in round %d", ErrRoundIncomplete, incomplete, t.CurrentRound)
			}
		}

		exists, err := s.matchRepo.ExistsForRound(ctx, exec, t.ID, round)
		if err != nil {
			return err
		}
		if exists {
			return ErrConcurrencyConflict
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, true)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			return fmt.Errorf("%w: have %d", ErrNotEnoughTeams, len(participants))
		}
		if err := recomputeBuchholz(ctx, exec, s.participantRepo, participants); err != nil {
			return err
		}

		standings := make([]brackets.Standing, len(participants))
		for i, p := range participants {
			standings[i] = brackets.Standing{
				TeamID:     p.TeamID,
				SeedNumber: p.SeedNumber,
				SwissScore: p.SwissScore,
				Tiebreaker: p.Buchholz,
			}
		}
		strategy, err := brackets.StrategyFor(models.FormatSwiss)
		if err != nil {
			return err
		}
		proposal, err := strategy.PairRound(standings, round)
		if err != nil {
			return err
		}

		// Swiss proposals carry no bracket slots, so no slot repo is needed.
		matches, err := persistStructure(ctx, exec, t, proposal, nil, s.matchRepo)
		if err != nil {
			return err
		}
		if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, matches, false); err != nil {
			return err
		}

		if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, round, t.TotalRounds); err != nil {
			return err
		}

		s.audit.record(ctx, exec, t.ID, models.LogPairingsGenerated,
			fmt.Sprintf("round %d: %d matches, %d byes", round, len(matches), proposal.ByeCount))
		created = matches
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventBracketUpdated, TournamentID: tournamentID})
	s.logger.Info("swiss pairings generated",
		slog.String("tournament_id", tournamentID),
		slog.Int("round", round),
		slog.Int("matches", len(created)))
	return created, nil
}

func (s *swissService) Standings(ctx context.Context, tournamentID string) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentErr(err)
	}
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, err
	}
	sortStandings(participants)
	return participants, nil
}
