package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

type RoundControlService interface {
	// AdvanceRound moves an elimination tournament to its next round once
	// every match of the current round is resolved.
	AdvanceRound(ctx context.Context, tournamentID string) (*models.Tournament, error)
	// RewindRound steps the tournament back one round, reverting the
	// standings contribution of every completed match in the round being
	// undone.
	RewindRound(ctx context.Context, tournamentID string) (*models.Tournament, error)
	// RegenerateCurrentRound discards the current round's pairings and
	// rebuilds them. Swiss rounds re-pair from fresh standings; a single
	// elimination tournament can rebuild its opening round from the current
	// seeds. Rejected once any match of the round has been played.
	RegenerateCurrentRound(ctx context.Context, tournamentID string) ([]*models.Match, error)
	// ResetBracket deletes the entire structure, zeroes standings, and
	// returns the tournament to Seeding. Safe to call with no structure.
	ResetBracket(ctx context.Context, tournamentID string) (*models.Tournament, error)
}

type roundControlService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	audit           *auditor
	hub             EventPublisher
	logger          *slog.Logger
}

func NewRoundControlService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	logRepo repositories.LogRepository,
	hub EventPublisher,
	logger *slog.Logger,
) RoundControlService {
	return &roundControlService{
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

func (s *roundControlService) AdvanceRound(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var advanced *models.Tournament
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if t.Format == models.FormatSwiss {
			return fmt.Errorf("%w: swiss rounds advance by generating pairings", ErrValidationFailed)
		}
		if t.Status != models.StatusInProgress {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, t.Status)
		}
		if t.CurrentRound < 1 {
			return ErrBracketNotGenerated
		}
		if t.CurrentRound >= t.TotalRounds {
			return fmt.Errorf("%w: round %d of %d", ErrAllRoundsPlayed, t.CurrentRound, t.TotalRounds)
		}

		incomplete, err := s.matchRepo.CountIncompleteForRound(ctx, exec, t.ID, t.CurrentRound)
		if err != nil {
			return err
		}
		if incomplete > 0 {
			return fmt.Errorf("%w: %d matches open in round %d", ErrRoundIncomplete, incomplete, t.CurrentRound)
		}

		next := t.CurrentRound + 1
		if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, next, t.TotalRounds); err != nil {
			return err
		}
		t.CurrentRound = next

		s.audit.record(ctx, exec, t.ID, models.LogRoundAdvanced, fmt.Sprintf("round %d -> %d", next-1, next))
		advanced = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventBracketUpdated, TournamentID: tournamentID})
	s.logger.Info("round advanced", slog.String("tournament_id", tournamentID), slog.Int("round", advanced.CurrentRound))
	return advanced, nil
}

func (s *roundControlService) RewindRound(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var rewound *models.Tournament
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if t.Status != models.StatusInProgress && t.Status != models.StatusPaused {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, t.Status)
		}
		if t.CurrentRound < 1 {
			return ErrNoRoundToRewind
		}

		round := t.CurrentRound
		matches, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{RoundNumber: round})
		if err != nil {
			return err
		}
		if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, matches, true); err != nil {
			return err
		}

		totalRounds := t.TotalRounds
		switch {
		case t.Format == models.FormatSwiss:
			// Swiss rounds are generated on demand, so the round is removed
			// outright and can be re-paired later.
			if err := s.matchRepo.DeleteByRound(ctx, exec, t.ID, round); err != nil {
				return err
			}
		case round == 1:
			// Rewinding the opening round leaves no earlier round for the
			// shells to feed from, so the whole tree comes down.
			if err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
				return err
			}
			if err := s.bracketRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
				return err
			}
			totalRounds = 0
		default:
			// Elimination shells are pre-built; reopen them instead.
			for _, m := range matches {
				m.Team1Score, m.Team2Score = 0, 0
				m.Status = models.MatchScheduled
				m.Result = nil
				m.WinnerID = nil
				if err := s.matchRepo.Update(ctx, exec, m); err != nil {
					return err
				}
			}
		}

		if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, round-1, totalRounds); err != nil {
			return err
		}
		t.CurrentRound = round - 1
		t.TotalRounds = totalRounds

		s.audit.record(ctx, exec, t.ID, models.LogRoundRewound, fmt.Sprintf("round %d -> %d", round, round-1))
		rewound = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventBracketUpdated, TournamentID: tournamentID})
	s.logger.Info("round rewound", slog.String("tournament_id", tournamentID), slog.Int("round", rewound.CurrentRound))
	return rewound, nil
}

func (s *roundControlService) RegenerateCurrentRound(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	var created []*models.Match
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if t.Status != models.StatusInProgress {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, t.Status)
		}
		if t.CurrentRound < 1 {
			return ErrBracketNotGenerated
		}

		round := t.CurrentRound
		old, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{RoundNumber: round})
		if err != nil {
			return err
		}
		// Byes complete themselves at generation and do not count as played.
		for _, m := range old {
			if m.Status != models.MatchScheduled && !m.IsBye() {
				return fmt.Errorf("%w: match %d is %s", ErrRoundStarted, m.MatchNumber, m.Status)
			}
		}
		if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, old, true); err != nil {
			return err
		}

		switch t.Format {
		case models.FormatSwiss:
			created, err = s.repairSwissRound(ctx, exec, t, round)
		case models.FormatSingleElimination:
			if round != 1 {
				return fmt.Errorf("%w: elimination rounds past the first are fixed by earlier results", ErrValidationFailed)
			}
			created, err = s.rebuildOpeningRound(ctx, exec, t)
		default:
			return fmt.Errorf("%w: %s", ErrFormatNotSupported, t.Format)
		}
		if err != nil {
			return err
		}

		s.audit.record(ctx, exec, t.ID, models.LogRoundRegenerated,
			fmt.Sprintf("round %d re-paired: %d matches", round, len(created)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventBracketUpdated, TournamentID: tournamentID})
	s.logger.Info("round regenerated", slog.String("tournament_id", tournamentID))
	return created, nil
}

// repairSwissRound deletes the round's pairings and re-pairs it from fresh
// standings. The caller has already reverted the old matches' contribution.
func (s *roundControlService) repairSwissRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, round int) ([]*models.Match, error) {
	if err := s.matchRepo.DeleteByRound(ctx, exec, t.ID, round); err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, true)
	if err != nil {
		return nil, err
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrNotEnoughTeams, len(participants))
	}
	if err := recomputeBuchholz(ctx, exec, s.participantRepo, participants); err != nil {
		return nil, err
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
		return nil, err
	}
	proposal, err := strategy.PairRound(standings, round)
	if err != nil {
		return nil, err
	}
	matches, err := persistStructure(ctx, exec, t, proposal, nil, s.matchRepo)
	if err != nil {
		return nil, err
	}
	if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, matches, false); err != nil {
		return nil, err
	}
	return matches, nil
}

// rebuildOpeningRound tears the elimination tree down and regenerates it from
// the current seeds. Only reachable while the opening round is untouched, so
// the only standings to revert are bye auto-completions, which the caller has
// already handled.
func (s *roundControlService) rebuildOpeningRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) ([]*models.Match, error) {
	if err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
		return nil, err
	}
	if err := s.bracketRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, true)
	if err != nil {
		return nil, err
	}
	proposal, err := buildInitialStructure(ctx, exec, t, participants, s.bracketRepo, s.matchRepo)
	if err != nil {
		return nil, err
	}
	matches, err := persistStructure(ctx, exec, t, proposal, s.bracketRepo, s.matchRepo)
	if err != nil {
		return nil, err
	}
	if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, matches, false); err != nil {
		return nil, err
	}

	totalRounds := structureTotalRounds(t, proposal)
	if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, 1, totalRounds); err != nil {
		return nil, err
	}
	t.TotalRounds = totalRounds

	opening := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.RoundNumber == 1 {
			opening = append(opening, m)
		}
	}
	return opening, nil
}

func (s *roundControlService) ResetBracket(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var reset *models.Tournament
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		switch t.Status {
		case models.StatusSeeding, models.StatusInProgress, models.StatusPaused:
		default:
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, t.Status)
		}

		if err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
			return err
		}
		if err := s.bracketRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
			return err
		}
		if err := s.participantRepo.ResetStandings(ctx, exec, t.ID); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, 0, 0); err != nil {
			return err
		}
		if t.Status != models.StatusSeeding {
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusSeeding); err != nil {
				return err
			}
		}
		t.Status = models.StatusSeeding
		t.CurrentRound = 0
		t.TotalRounds = 0

		s.audit.record(ctx, exec, t.ID, models.LogBracketReset, "structure deleted, standings zeroed")
		reset = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventBracketUpdated, TournamentID: tournamentID})
	s.hub.Publish(brackets.Event{Type: brackets.EventStateChanged, TournamentID: tournamentID})
	s.logger.Info("bracket reset", slog.String("tournament_id", tournamentID))
	return reset, nil
}
