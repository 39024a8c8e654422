package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/riftline/tournament-engine/models"
)

var (
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrParticipantSeedConflict = errors.New("seed number already assigned in this tournament")
	ErrParticipantTeamConflict = errors.New("team is already registered for this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Participant, error)
	GetByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID string) (*models.Participant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, activeOnly bool) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error)
	// UpdateSeeds rewrites seed numbers for the given participants in one
	// statement batch. Callers validate density before invoking.
	UpdateSeeds(ctx context.Context, exec SQLExecutor, tournamentID string, seedByParticipantID map[string]int) error
	UpdateStanding(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	SetActive(ctx context.Context, exec SQLExecutor, id string, active bool) error
	ResetStandings(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `
	id, tournament_id, team_id, seed_number, is_active, rank_score,
	wins, losses, draws, swiss_score, tiebreaker_points, buchholz_score,
	opponents_played, created_at`

func scanParticipant(row interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.TeamID, &p.SeedNumber, &p.IsActive, &p.RankScore,
		&p.Wins, &p.Losses, &p.Draws, &p.SwissScore, &p.Tiebreaker, &p.Buchholz,
		pq.Array(&p.OpponentsPlayed), &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.OpponentsPlayed == nil {
		p.OpponentsPlayed = []string{}
	}
	return p, nil
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournament_participants (
			id, tournament_id, team_id, seed_number, is_active, rank_score,
			wins, losses, draws, swiss_score, tiebreaker_points, buchholz_score, opponents_played
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		p.ID, p.TournamentID, p.TeamID, p.SeedNumber, p.IsActive, p.RankScore,
		p.Wins, p.Losses, p.Draws, p.SwissScore, p.Tiebreaker, p.Buchholz,
		pq.Array(p.OpponentsPlayed),
	).Scan(&p.CreatedAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE id = $1`

	p, err := scanParticipant(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) GetByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID string) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE tournament_id = $1 AND team_id = $2`

	p, err := scanParticipant(executor.QueryRowContext(ctx, query, tournamentID, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant for team %s: %w", teamID, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, activeOnly bool) ([]*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY seed_number ASC, created_at ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, scanErr := scanParticipant(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %s: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateSeeds(ctx context.Context, exec SQLExecutor, tournamentID string, seedByParticipantID map[string]int) error {
	executor := r.getExecutor(exec)

	// Two passes: park every touched row on a negative seed first so the
	// unique (tournament_id, seed_number) constraint cannot trip mid-flight.
	for id := range seedByParticipantID {
		result, err := executor.ExecContext(ctx,
			`UPDATE tournament_participants SET seed_number = -seed_number WHERE id = $1 AND tournament_id = $2`,
			id, tournamentID)
		if err != nil {
			return r.handleParticipantError(err)
		}
		if err := checkAffectedRows(result, ErrParticipantNotFound); err != nil {
			return err
		}
	}
	for id, seed := range seedByParticipantID {
		if _, err := executor.ExecContext(ctx,
			`UPDATE tournament_participants SET seed_number = $1 WHERE id = $2 AND tournament_id = $3`,
			seed, id, tournamentID); err != nil {
			return r.handleParticipantError(err)
		}
	}
	return nil
}

func (r *postgresParticipantRepository) UpdateStanding(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_participants SET
			is_active = $1, wins = $2, losses = $3, draws = $4,
			swiss_score = $5, tiebreaker_points = $6, buchholz_score = $7,
			opponents_played = $8
		WHERE id = $9`

	result, err := executor.ExecContext(ctx, query,
		p.IsActive, p.Wins, p.Losses, p.Draws,
		p.SwissScore, p.Tiebreaker, p.Buchholz,
		pq.Array(p.OpponentsPlayed), p.ID)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetActive(ctx context.Context, exec SQLExecutor, id string, active bool) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournament_participants SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return r.handleParticipantError(err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ResetStandings(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `
		UPDATE tournament_participants SET
			is_active = TRUE, wins = 0, losses = 0, draws = 0,
			swiss_score = 0, tiebreaker_points = 0, buchholz_score = 0,
			opponents_played = '{}'
		WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to reset standings for tournament %s: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "tournament_participants_tournament_id_seed_number_key":
			return ErrParticipantSeedConflict
		case "tournament_participants_tournament_id_team_id_key":
			return ErrParticipantTeamConflict
		}
	}
	return err
}
