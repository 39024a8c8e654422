package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/riftline/tournament-engine/models"
)

type LogRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.Log) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, limit int) ([]*models.Log, error)
}

type postgresLogRepository struct {
	db *sql.DB
}

func NewPostgresLogRepository(db *sql.DB) LogRepository {
	return &postgresLogRepository{db: db}
}

func (r *postgresLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLogRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.Log) error {
	executor := r.getExecutor(exec)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournament_logs (id, tournament_id, action, match_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		entry.ID, entry.TournamentID, entry.Action, entry.MatchID, entry.Details,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append tournament log: %w", err)
	}
	return nil
}

func (r *postgresLogRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, limit int) ([]*models.Log, error) {
	executor := r.getExecutor(exec)
	if limit <= 0 {
		limit = 50
	}
	rows, err := executor.QueryContext(ctx, `
		SELECT id, tournament_id, action, match_id, details, created_at
		FROM tournament_logs
		WHERE tournament_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, tournamentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	logs := make([]*models.Log, 0)
	for rows.Next() {
		l := &models.Log{}
		if err := rows.Scan(&l.ID, &l.TournamentID, &l.Action, &l.MatchID, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
