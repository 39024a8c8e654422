package services

import (
	"context"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

// applyMatchDeltas folds the standings contribution of every completed
// match in the slice into the participant accumulators. With negate it
// subtracts instead, which is how round rewinds undo results. Incomplete
// matches contribute nothing.
func applyMatchDeltas(
	ctx context.Context,
	exec repositories.SQLExecutor,
	participantRepo repositories.ParticipantRepository,
	t *models.Tournament,
	matches []*models.Match,
	negate bool,
) error {
	cfg := scoreConfigOf(t)
	for _, m := range matches {
		if m.Status != models.MatchCompleted || m.Result == nil {
			continue
		}
		deltas, err := brackets.ResultDeltas(m, cfg)
		if err != nil {
			return err
		}
		for _, d := range deltas {
			if negate {
				d = d.Negate()
			}
			p, err := participantRepo.GetByTeam(ctx, exec, t.ID, d.TeamID)
			if err != nil {
				return mapParticipantErr(err)
			}
			d.Apply(p)
			if err := participantRepo.UpdateStanding(ctx, exec, p); err != nil {
				return mapParticipantErr(err)
			}
		}
	}
	return nil
}

// recomputeBuchholz refreshes each participant's Buchholz score (the sum of
// their opponents' cumulative scores) and persists the changed rows.
func recomputeBuchholz(
	ctx context.Context,
	exec repositories.SQLExecutor,
	participantRepo repositories.ParticipantRepository,
	participants []*models.Participant,
) error {
	scoreByTeam := make(map[string]int, len(participants))
	for _, p := range participants {
		scoreByTeam[p.TeamID] = p.SwissScore
	}
	for _, p := range participants {
		total := 0
		for _, opponent := range p.OpponentsPlayed {
			total += scoreByTeam[opponent]
		}
		if total == p.Buchholz {
			continue
		}
		p.Buchholz = total
		if err := participantRepo.UpdateStanding(ctx, exec, p); err != nil {
			return mapParticipantErr(err)
		}
	}
	return nil
}
