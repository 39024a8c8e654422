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
	ErrBracketNotFound     = errors.New("bracket slot not found")
	ErrBracketSlotConflict = errors.New("bracket slot already exists for this round and position")
)

type BracketRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, slots []*models.Bracket) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Bracket, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.Bracket, error)
	ExistsForTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (bool, error)
	DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const bracketColumns = `id, tournament_id, round_number, bracket_position, is_final, created_at`

func (r *postgresBracketRepository) CreateBatch(ctx context.Context, exec SQLExecutor, slots []*models.Bracket) error {
	if len(slots) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO brackets (id, tournament_id, round_number, bracket_position, is_final)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	for _, b := range slots {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		err := executor.QueryRowContext(ctx, query,
			b.ID, b.TournamentID, b.RoundNumber, b.BracketPosition, b.IsFinal,
		).Scan(&b.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrBracketSlotConflict
			}
			return fmt.Errorf("failed to insert bracket slot r%d p%d: %w", b.RoundNumber, b.BracketPosition, err)
		}
	}
	return nil
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Bracket, error) {
	executor := r.getExecutor(exec)
	b := &models.Bracket{}
	err := executor.QueryRowContext(ctx,
		`SELECT `+bracketColumns+` FROM brackets WHERE id = $1`, id,
	).Scan(&b.ID, &b.TournamentID, &b.RoundNumber, &b.BracketPosition, &b.IsFinal, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket %s: %w", id, err)
	}
	return b, nil
}

func (r *postgresBracketRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.Bracket, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+bracketColumns+` FROM brackets
		 WHERE tournament_id = $1
		 ORDER BY round_number ASC, bracket_position ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query brackets for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	slots := make([]*models.Bracket, 0)
	for rows.Next() {
		b := &models.Bracket{}
		if err := rows.Scan(&b.ID, &b.TournamentID, &b.RoundNumber, &b.BracketPosition, &b.IsFinal, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bracket row: %w", err)
		}
		slots = append(slots, b)
	}
	return slots, rows.Err()
}

func (r *postgresBracketRepository) ExistsForTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM brackets WHERE tournament_id = $1)`, tournamentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check brackets for tournament %s: %w", tournamentID, err)
	}
	return exists, nil
}

func (r *postgresBracketRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID string, roundNumber int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM brackets WHERE tournament_id = $1 AND round_number = $2`, tournamentID, roundNumber)
	if err != nil {
		return fmt.Errorf("failed to delete brackets for round %d: %w", roundNumber, err)
	}
	return nil
}

func (r *postgresBracketRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM brackets WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete brackets for tournament %s: %w", tournamentID, err)
	}
	return nil
}
