package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

// EventPublisher is the slice of the websocket hub the services need.
type EventPublisher interface {
	Publish(event brackets.Event)
}

// BracketView is the full structural snapshot of a tournament: slots,
// matches, and participants ordered by current standing.
type BracketView struct {
	Tournament *models.Tournament    `json:"tournament"`
	Slots      []*models.Bracket     `json:"slots"`
	Matches    []*models.Match       `json:"matches"`
	Standings  []*models.Participant `json:"standings"`
}

type BracketService interface {
	// Generate builds the initial structure for the tournament's format.
	// It is rejected unless the tournament is in a state that allows
	// bracket generation and no structure exists yet.
	Generate(ctx context.Context, tournamentID string) (*BracketView, error)
	GetBracketView(ctx context.Context, tournamentID string) (*BracketView, error)
}

type bracketService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	audit           *auditor
	hub             EventPublisher
	logger          *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	logRepo repositories.LogRepository,
	hub EventPublisher,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
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

func (s *bracketService) Generate(ctx context.Context, tournamentID string) (*BracketView, error) {
	var generated *models.Tournament

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, true)
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
		// Byes are persisted pre-completed and count toward standings.
		if err := applyMatchDeltas(ctx, exec, s.participantRepo, t, created, false); err != nil {
			return err
		}

		totalRounds := structureTotalRounds(t, proposal)
		if err := s.tournamentRepo.UpdateRounds(ctx, exec, t.ID, t.CurrentRound, totalRounds); err != nil {
			return err
		}
		t.TotalRounds = totalRounds

		s.audit.record(ctx, exec, t.ID, models.LogBracketGenerated,
			fmt.Sprintf("format=%s rounds=%d matches=%d byes=%d", t.Format, totalRounds, len(proposal.Matches), proposal.ByeCount))
		generated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(brackets.Event{Type: brackets.EventBracketUpdated, TournamentID: tournamentID})
	s.logger.Info("bracket generated",
		slog.String("tournament_id", tournamentID),
		slog.String("format", string(generated.Format)))

	return s.GetBracketView(ctx, tournamentID)
}

// buildInitialStructure validates preconditions and runs the format's
// strategy. It does not write anything.
func buildInitialStructure(
	ctx context.Context,
	exec repositories.SQLExecutor,
	t *models.Tournament,
	participants []*models.Participant,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
) (*brackets.RoundProposal, error) {
	if t.Status != models.StatusSeeding && t.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot generate a bracket while %s", ErrValidationFailed, t.Status)
	}

	exists, err := structureExists(ctx, exec, t, bracketRepo, matchRepo)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBracketAlreadyExists
	}

	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: have %d", ErrNotEnoughTeams, len(participants))
	}
	if err := validateDenseSeeding(participants); err != nil {
		return nil, err
	}

	strategy, err := brackets.StrategyFor(t.Format)
	if err != nil {
		return nil, ErrFormatNotSupported
	}

	seeds := make([]brackets.Seed, len(participants))
	for i, p := range participants {
		seeds[i] = brackets.Seed{TeamID: p.TeamID, SeedNumber: p.SeedNumber}
	}
	proposal, err := strategy.GenerateInitial(seeds)
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// structureExists reports whether the tournament already has a generated
// structure. Elimination formats own bracket slots; Swiss rounds exist only
// as matches.
func structureExists(
	ctx context.Context,
	exec repositories.SQLExecutor,
	t *models.Tournament,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
) (bool, error) {
	hasSlots, err := bracketRepo.ExistsForTournament(ctx, exec, t.ID)
	if err != nil {
		return false, err
	}
	if hasSlots {
		return true, nil
	}
	return matchRepo.ExistsForRound(ctx, exec, t.ID, 1)
}

// persistStructure writes a proposal's slots and matches, linking matches
// to their bracket slots by (round, position). Swiss matches carry no slot.
// The created matches are returned so callers can fold in bye results.
func persistStructure(
	ctx context.Context,
	exec repositories.SQLExecutor,
	t *models.Tournament,
	proposal *brackets.RoundProposal,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
) ([]*models.Match, error) {
	type slotKey struct{ round, pos int }
	slotIDs := make(map[slotKey]string, len(proposal.Slots))

	if len(proposal.Slots) > 0 {
		slots := make([]*models.Bracket, len(proposal.Slots))
		for i, sp := range proposal.Slots {
			slots[i] = &models.Bracket{
				TournamentID:    t.ID,
				RoundNumber:     sp.RoundNumber,
				BracketPosition: sp.BracketPosition,
				IsFinal:         sp.IsFinal,
			}
		}
		if err := bracketRepo.CreateBatch(ctx, exec, slots); err != nil {
			if errors.Is(err, repositories.ErrBracketSlotConflict) {
				return nil, ErrConcurrencyConflict
			}
			return nil, err
		}
		for _, b := range slots {
			slotIDs[slotKey{b.RoundNumber, b.BracketPosition}] = b.ID
		}
	}

	matches := make([]*models.Match, len(proposal.Matches))
	for i, mp := range proposal.Matches {
		m := &models.Match{
			TournamentID: t.ID,
			RoundNumber:  mp.RoundNumber,
			MatchNumber:  mp.BracketPosition,
			Team1ID:      mp.Team1ID,
			Team2ID:      mp.Team2ID,
			Status:       mp.Status,
			Result:       mp.Result,
			WinnerID:     mp.WinnerID,
		}
		if id, ok := slotIDs[slotKey{mp.RoundNumber, mp.BracketPosition}]; ok {
			bracketID := id
			m.BracketID = &bracketID
		}
		matches[i] = m
	}
	if err := matchRepo.CreateBatch(ctx, exec, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// structureTotalRounds resolves the round count persisted at generation.
// Swiss takes it from the tournament's settings, falling back to the
// proposal for formats that derive it from the field size.
func structureTotalRounds(t *models.Tournament, proposal *brackets.RoundProposal) int {
	if t.Format == models.FormatSwiss {
		if t.Swiss.Rounds > 0 {
			return t.Swiss.Rounds
		}
		return brackets.Rounds(t.MaxTeams)
	}
	return proposal.TotalRounds
}

// validateDenseSeeding requires seed numbers to be exactly 1..N with no
// gaps or duplicates across the active field.
func validateDenseSeeding(participants []*models.Participant) error {
	seen := make(map[int]bool, len(participants))
	for _, p := range participants {
		if p.SeedNumber < 1 || p.SeedNumber > len(participants) {
			return fmt.Errorf("%w: seed %d out of range 1..%d", ErrSeedingInvalid, p.SeedNumber, len(participants))
		}
		if seen[p.SeedNumber] {
			return fmt.Errorf("%w: seed %d assigned twice", ErrSeedingInvalid, p.SeedNumber)
		}
		seen[p.SeedNumber] = true
	}
	return nil
}

func (s *bracketService) GetBracketView(ctx context.Context, tournamentID string) (*BracketView, error) {
	view := &BracketView{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, nil, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		view.Tournament = t
		return nil
	})
	g.Go(func() error {
		slots, err := s.bracketRepo.ListByTournament(gctx, nil, tournamentID)
		if err != nil {
			return err
		}
		view.Slots = slots
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, nil, tournamentID, repositories.ListMatchesFilter{})
		if err != nil {
			return err
		}
		view.Matches = matches
		return nil
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gctx, nil, tournamentID, false)
		if err != nil {
			return err
		}
		view.Standings = participants
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortStandings(view.Standings)
	return view, nil
}

// sortStandings orders participants by score, then tiebreaker, then seed.
func sortStandings(participants []*models.Participant) {
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.SwissScore != b.SwissScore {
			return a.SwissScore > b.SwissScore
		}
		if a.Tiebreaker != b.Tiebreaker {
			return a.Tiebreaker > b.Tiebreaker
		}
		return a.SeedNumber < b.SeedNumber
	})
}

func mapTournamentErr(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
