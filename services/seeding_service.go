package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/riftline/tournament-engine/lifecycle"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

type SeedingService interface {
	// Randomize assigns seeds 1..N in random order across active participants.
	Randomize(ctx context.Context, tournamentID string) ([]*models.Participant, error)
	// ByRank assigns seeds by descending rank score, ties broken by
	// registration order.
	ByRank(ctx context.Context, tournamentID string) ([]*models.Participant, error)
	// SetSeed gives one participant a specific seed. If another participant
	// holds that seed, the two swap.
	SetSeed(ctx context.Context, tournamentID, participantID string, seed int) ([]*models.Participant, error)
	SwapSeeds(ctx context.Context, tournamentID, participantA, participantB string) ([]*models.Participant, error)
}

type seedingService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	audit           *auditor
	logger          *slog.Logger
}

func NewSeedingService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	logRepo repositories.LogRepository,
	logger *slog.Logger,
) SeedingService {
	return &seedingService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		tx:              tx,
		audit:           newAuditor(logRepo, logger),
		logger:          logger,
	}
}

// checkSeedingUnlocked rejects seed mutations once the tournament leaves the
// seeding-editable states or a structure has been generated. Round-1
// pairings are fixed by the seeds they were built from, so seeds freeze the
// moment bracket rows exist even while the state is still Seeding.
func (s *seedingService) checkSeedingUnlocked(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	if !lifecycle.StateCapabilities(t.Status).CanEditSeeding {
		return fmt.Errorf("%w: tournament is %s", ErrSeedingLocked, t.Status)
	}
	exists, err := structureExists(ctx, exec, t, s.bracketRepo, s.matchRepo)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: bracket already generated", ErrSeedingLocked)
	}
	return nil
}

func (s *seedingService) Randomize(ctx context.Context, tournamentID string) ([]*models.Participant, error) {
	return s.reseed(ctx, tournamentID, "randomized", func(participants []*models.Participant) map[string]int {
		perm := rand.Perm(len(participants))
		assignment := make(map[string]int, len(participants))
		for i, p := range participants {
			assignment[p.ID] = perm[i] + 1
		}
		return assignment
	})
}

func (s *seedingService) ByRank(ctx context.Context, tournamentID string) ([]*models.Participant, error) {
	return s.reseed(ctx, tournamentID, "by rank score", func(participants []*models.Participant) map[string]int {
		ranked := make([]*models.Participant, len(participants))
		copy(ranked, participants)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].RankScore != ranked[j].RankScore {
				return ranked[i].RankScore > ranked[j].RankScore
			}
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		})
		assignment := make(map[string]int, len(ranked))
		for i, p := range ranked {
			assignment[p.ID] = i + 1
		}
		return assignment
	})
}

// reseed runs a full reassignment under the tournament row lock. The
// assignment function receives active participants and must return a dense
// permutation keyed by participant id.
func (s *seedingService) reseed(
	ctx context.Context,
	tournamentID string,
	detail string,
	assign func(participants []*models.Participant) map[string]int,
) ([]*models.Participant, error) {
	var out []*models.Participant
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if err := s.checkSeedingUnlocked(ctx, exec, t); err != nil {
			return err
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, true)
		if err != nil {
			return err
		}
		if len(participants) == 0 {
			return fmt.Errorf("%w: no active participants", ErrValidationFailed)
		}

		assignment := assign(participants)
		if err := validateAssignment(participants, assignment); err != nil {
			return err
		}
		if err := s.participantRepo.UpdateSeeds(ctx, exec, tournamentID, assignment); err != nil {
			return err
		}
		for _, p := range participants {
			p.SeedNumber = assignment[p.ID]
		}
		sort.Slice(participants, func(i, j int) bool { return participants[i].SeedNumber < participants[j].SeedNumber })

		s.audit.record(ctx, exec, tournamentID, models.LogSeedingUpdated, "seeding "+detail)
		out = participants
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("seeding updated", slog.String("tournament_id", tournamentID), slog.String("mode", detail))
	return out, nil
}

func (s *seedingService) SetSeed(ctx context.Context, tournamentID, participantID string, seed int) ([]*models.Participant, error) {
	return s.reseedPair(ctx, tournamentID, fmt.Sprintf("participant %s set to seed %d", participantID, seed),
		func(participants []*models.Participant) (map[string]int, error) {
			target := findParticipant(participants, participantID)
			if target == nil {
				return nil, ErrParticipantNotFound
			}
			if seed < 1 || seed > len(participants) {
				return nil, fmt.Errorf("%w: seed %d out of range 1..%d", ErrValidationFailed, seed, len(participants))
			}
			if target.SeedNumber == seed {
				return nil, nil
			}
			assignment := map[string]int{target.ID: seed}
			for _, p := range participants {
				if p.ID != target.ID && p.SeedNumber == seed {
					// Occupant takes the mover's old seed.
					assignment[p.ID] = target.SeedNumber
					break
				}
			}
			return assignment, nil
		})
}

func (s *seedingService) SwapSeeds(ctx context.Context, tournamentID, participantA, participantB string) ([]*models.Participant, error) {
	return s.reseedPair(ctx, tournamentID, fmt.Sprintf("swapped seeds of %s and %s", participantA, participantB),
		func(participants []*models.Participant) (map[string]int, error) {
			a := findParticipant(participants, participantA)
			b := findParticipant(participants, participantB)
			if a == nil || b == nil {
				return nil, ErrParticipantNotFound
			}
			if a.ID == b.ID {
				return nil, nil
			}
			return map[string]int{a.ID: b.SeedNumber, b.ID: a.SeedNumber}, nil
		})
}

// reseedPair applies a partial assignment produced under the row lock. A
// nil assignment means nothing to change.
func (s *seedingService) reseedPair(
	ctx context.Context,
	tournamentID string,
	detail string,
	assign func(participants []*models.Participant) (map[string]int, error),
) ([]*models.Participant, error) {
	var out []*models.Participant
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if err := s.checkSeedingUnlocked(ctx, exec, t); err != nil {
			return err
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, true)
		if err != nil {
			return err
		}

		assignment, err := assign(participants)
		if err != nil {
			return err
		}
		if len(assignment) > 0 {
			if err := s.participantRepo.UpdateSeeds(ctx, exec, tournamentID, assignment); err != nil {
				return err
			}
			for _, p := range participants {
				if seed, ok := assignment[p.ID]; ok {
					p.SeedNumber = seed
				}
			}
			s.audit.record(ctx, exec, tournamentID, models.LogSeedingUpdated, detail)
		}
		sort.Slice(participants, func(i, j int) bool { return participants[i].SeedNumber < participants[j].SeedNumber })
		out = participants
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateAssignment requires a complete dense permutation over the field.
func validateAssignment(participants []*models.Participant, assignment map[string]int) error {
	if len(assignment) != len(participants) {
		return fmt.Errorf("%w: assignment covers %d of %d participants", ErrSeedingInvalid, len(assignment), len(participants))
	}
	seen := make(map[int]bool, len(assignment))
	for _, p := range participants {
		seed, ok := assignment[p.ID]
		if !ok {
			return fmt.Errorf("%w: participant %s has no seed", ErrSeedingInvalid, p.ID)
		}
		if seed < 1 || seed > len(participants) || seen[seed] {
			return fmt.Errorf("%w: seed %d invalid or duplicated", ErrSeedingInvalid, seed)
		}
		seen[seed] = true
	}
	return nil
}

func findParticipant(participants []*models.Participant, id string) *models.Participant {
	for _, p := range participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}
