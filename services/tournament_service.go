package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/riftline/tournament-engine/lifecycle"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
	"github.com/riftline/tournament-engine/storage"
	"github.com/riftline/tournament-engine/utils"
)

var ErrTournamentSlugConflict = errors.New("tournament slug already in use")

// CreateTournamentInput is the payload for creating a tournament. Zero
// Swiss settings fall back to 3/1/0 scoring.
type CreateTournamentInput struct {
	Name     string                  `json:"name"`
	Format   models.TournamentFormat `json:"format"`
	MaxTeams int                     `json:"max_teams"`
	Swiss    models.SwissSettings    `json:"swiss"`
}

// RegisterTeamInput registers one opaque team id into a tournament.
type RegisterTeamInput struct {
	TeamID    string  `json:"team_id"`
	RankScore float64 `json:"rank_score"`
}

type TournamentService interface {
	Create(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, tournamentID string) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Delete(ctx context.Context, tournamentID string) error

	RegisterTeam(ctx context.Context, tournamentID string, in RegisterTeamInput) (*models.Participant, error)
	WithdrawTeam(ctx context.Context, tournamentID, participantID string) error
	ListParticipants(ctx context.Context, tournamentID string) ([]*models.Participant, error)

	UploadBanner(ctx context.Context, tournamentID, contentType string, banner io.Reader) (*models.Tournament, error)
	RemoveBanner(ctx context.Context, tournamentID string) error
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	tx              TxRunner
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tx TxRunner,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		tx:              tx,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	switch in.Format {
	case models.FormatSingleElimination, models.FormatSwiss,
		models.FormatDoubleElimination, models.FormatRoundRobin:
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidationFailed, in.Format)
	}
	if in.MaxTeams < 2 {
		return nil, fmt.Errorf("%w: max_teams must be at least 2", ErrValidationFailed)
	}

	swiss := in.Swiss
	if swiss.PointsPerWin == 0 && swiss.PointsPerDraw == 0 {
		swiss.PointsPerWin = 3
		swiss.PointsPerDraw = 1
	}

	t := &models.Tournament{
		Name:     name,
		Slug:     utils.Slugify(name),
		Format:   in.Format,
		Status:   models.StatusRegistration,
		MaxTeams: in.MaxTeams,
		Swiss:    swiss,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentSlugConflict) {
			return nil, ErrTournamentSlugConflict
		}
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.String("tournament_id", t.ID),
		slog.String("format", string(t.Format)))
	return t, nil
}

func (s *tournamentService) Get(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentErr(err)
	}
	s.populateBannerURL(t)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) Delete(ctx context.Context, tournamentID string) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return mapTournamentErr(err)
	}
	if err := s.tournamentRepo.Delete(ctx, tournamentID); err != nil {
		return mapTournamentErr(err)
	}
	if t.BannerKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *t.BannerKey); err != nil {
			s.logger.Warn("failed to delete banner object",
				slog.String("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) RegisterTeam(ctx context.Context, tournamentID string, in RegisterTeamInput) (*models.Participant, error) {
	if in.TeamID == "" {
		return nil, fmt.Errorf("%w: team_id is required", ErrValidationFailed)
	}

	var registered *models.Participant
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		if !lifecycle.StateCapabilities(t.Status).CanRegister {
			return fmt.Errorf("%w: registration is closed", ErrValidationFailed)
		}
		count, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if count >= t.MaxTeams {
			return fmt.Errorf("%w: tournament is full (%d teams)", ErrValidationFailed, t.MaxTeams)
		}

		p := &models.Participant{
			TournamentID:    tournamentID,
			TeamID:          in.TeamID,
			SeedNumber:      count + 1,
			IsActive:        true,
			RankScore:       in.RankScore,
			OpponentsPlayed: []string{},
		}
		if err := s.participantRepo.Create(ctx, exec, p); err != nil {
			if errors.Is(err, repositories.ErrParticipantTeamConflict) {
				return fmt.Errorf("%w: team already registered", ErrValidationFailed)
			}
			return err
		}
		// Earlier withdrawals leave inactive rows holding trailing seeds;
		// recompact so the new team slots into the active 1..K range.
		seeds, err := s.compactSeeds(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		p.SeedNumber = seeds[p.ID]
		registered = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registered, nil
}

func (s *tournamentService) WithdrawTeam(ctx context.Context, tournamentID, participantID string) error {
	return s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentErr(err)
		}
		p, err := s.participantRepo.GetByID(ctx, exec, participantID)
		if err != nil {
			return mapParticipantErr(err)
		}
		if p.TournamentID != tournamentID {
			return ErrParticipantNotFound
		}
		// Before play starts a withdrawal deactivates the row; once the
		// structure exists the team stays and forfeits by inactivity.
		if !lifecycle.StateCapabilities(t.Status).IsMutable {
			return fmt.Errorf("%w: tournament is %s", ErrValidationFailed, t.Status)
		}
		if err := s.participantRepo.SetActive(ctx, exec, participantID, false); err != nil {
			return err
		}

		// While seeds are still editable the active field must stay densely
		// seeded 1..N, so close the gap the withdrawal left.
		if !lifecycle.StateCapabilities(t.Status).CanEditSeeding {
			return nil
		}
		exists, err := structureExists(ctx, exec, t, s.bracketRepo, s.matchRepo)
		if err != nil || exists {
			return err
		}
		_, err = s.compactSeeds(ctx, exec, t.ID)
		return err
	})
}

// compactSeeds reassigns seed numbers so active participants hold 1..K in
// their existing order and inactive ones trail behind. Returns the applied
// assignment keyed by participant id.
func (s *tournamentService) compactSeeds(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) (map[string]int, error) {
	all, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, false)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SeedNumber < all[j].SeedNumber })

	seeds := make(map[string]int, len(all))
	next := 1
	for _, p := range all {
		if p.IsActive {
			seeds[p.ID] = next
			next++
		}
	}
	for _, p := range all {
		if !p.IsActive {
			seeds[p.ID] = next
			next++
		}
	}
	if err := s.participantRepo.UpdateSeeds(ctx, exec, tournamentID, seeds); err != nil {
		return nil, err
	}
	return seeds, nil
}

func (s *tournamentService) ListParticipants(ctx context.Context, tournamentID string) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentErr(err)
	}
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID, false)
}

func (s *tournamentService) UploadBanner(ctx context.Context, tournamentID, contentType string, banner io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: banner storage not configured", ErrValidationFailed)
	}
	ext, ok := bannerExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported banner content type %q", ErrValidationFailed, contentType)
	}
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentErr(err)
	}

	key := fmt.Sprintf("tournaments/%s/banner-%s%s", tournamentID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, banner)
	if err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	oldKey := t.BannerKey
	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.String("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	t.BannerKey = &result.Key
	s.populateBannerURL(t)
	return t, nil
}

func (s *tournamentService) RemoveBanner(ctx context.Context, tournamentID string) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return mapTournamentErr(err)
	}
	if t.BannerKey == nil {
		return nil
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, nil); err != nil {
		return err
	}
	if s.uploader != nil {
		if err := s.uploader.Delete(ctx, *t.BannerKey); err != nil {
			s.logger.Warn("failed to delete banner object",
				slog.String("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	return nil
}

var bannerExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func (s *tournamentService) populateBannerURL(t *models.Tournament) {
	if t.BannerKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*t.BannerKey)
	if url != "" {
		t.BannerURL = &url
	}
}
