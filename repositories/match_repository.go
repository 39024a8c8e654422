package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/riftline/tournament-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

// ListMatchesFilter narrows ListByTournament. Zero values mean no filter.
type ListMatchesFilter struct {
	RoundNumber int
	Status      models.MatchStatus
}

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, filter ListMatchesFilter) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, m *models.Match) error
	// SetTeam fills one side of a match slot, used when advancing winners.
	SetTeam(ctx context.Context, exec SQLExecutor, matchID string, team1 bool, teamID *string) error
	CountIncomplete(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error)
	CountIncompleteForRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) (int, error)
	ExistsForRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) (bool, error)
	DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, bracket_id, round_number, match_number,
	team1_id, team2_id, team1_score, team2_score, status, result, winner_id, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.BracketID, &m.RoundNumber, &m.MatchNumber,
		&m.Team1ID, &m.Team2ID, &m.Team1Score, &m.Team2Score, &m.Status, &m.Result, &m.WinnerID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			id, tournament_id, bracket_id, round_number, match_number,
			team1_id, team2_id, team1_score, team2_score, status, result, winner_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	for _, m := range matches {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		err := executor.QueryRowContext(ctx, query,
			m.ID, m.TournamentID, m.BracketID, m.RoundNumber, m.MatchNumber,
			m.Team1ID, m.Team2ID, m.Team1Score, m.Team2Score, m.Status, m.Result, m.WinnerID,
		).Scan(&m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert match r%d #%d: %w", m.RoundNumber, m.MatchNumber, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error) {
	executor := r.getExecutor(exec)
	m, err := scanMatch(executor.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, filter ListMatchesFilter) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}

	if filter.RoundNumber > 0 {
		args = append(args, filter.RoundNumber)
		query += fmt.Sprintf(" AND round_number = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY round_number ASC, match_number ASC`

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches SET
			team1_score = $1, team2_score = $2, status = $3, result = $4, winner_id = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		m.Team1Score, m.Team2Score, m.Status, m.Result, m.WinnerID, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetTeam(ctx context.Context, exec SQLExecutor, matchID string, team1 bool, teamID *string) error {
	executor := r.getExecutor(exec)
	column := "team2_id"
	if team1 {
		column = "team1_id"
	}
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET `+column+` = $1 WHERE id = $2`, teamID, matchID)
	if err != nil {
		return fmt.Errorf("failed to set %s on match %s: %w", column, matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountIncomplete(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1
		  AND status <> 'Completed'
		  AND (team1_id IS NOT NULL OR team2_id IS NOT NULL)`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete matches for tournament %s: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) CountIncompleteForRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1 AND round_number = $2 AND status <> 'Completed'`,
		tournamentID, roundNumber,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete matches for round %d: %w", roundNumber, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) ExistsForRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM matches WHERE tournament_id = $1 AND round_number = $2)`,
		tournamentID, roundNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check matches for round %d: %w", roundNumber, err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1 AND round_number = $2`, tournamentID, roundNumber)
	if err != nil {
		return fmt.Errorf("failed to delete matches for round %d: %w", roundNumber, err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %s: %w", tournamentID, err)
	}
	return nil
}
