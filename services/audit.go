package services

import (
	"context"
	"log/slog"

	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

// auditor appends audit log rows. A failed append is logged and swallowed;
// it never fails the operation being audited.
type auditor struct {
	logRepo repositories.LogRepository
	logger  *slog.Logger
}

func newAuditor(logRepo repositories.LogRepository, logger *slog.Logger) *auditor {
	return &auditor{logRepo: logRepo, logger: logger}
}

func (a *auditor) record(ctx context.Context, exec repositories.SQLExecutor, tournamentID, action, details string) {
	a.recordMatch(ctx, exec, tournamentID, action, nil, details)
}

func (a *auditor) recordMatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID, action string, matchID *string, details string) {
	entry := &models.Log{
		TournamentID: tournamentID,
		Action:       action,
		MatchID:      matchID,
		Details:      details,
	}
	if err := a.logRepo.Append(ctx, exec, entry); err != nil {
		a.logger.Error("failed to append audit log",
			slog.String("tournament_id", tournamentID),
			slog.String("action", action),
			slog.Any("error", err))
	}
}
