package brackets

import (
	"fmt"

	"github.com/riftline/tournament-engine/models"
)

// ScoreConfig holds the points awarded per outcome (Swiss tunables).
type ScoreConfig struct {
	PointsPerWin  int
	PointsPerDraw int
	PointsPerLoss int
}

// StandingDelta is the per-team contribution of one completed match.
// Applying and reverting the same delta must cancel exactly; the whole
// repository maintains standings incrementally for that reason.
type StandingDelta struct {
	TeamID     string
	Wins       int
	Losses     int
	Draws      int
	Points     int
	OpponentID *string
}

// DeriveResult computes the result implied by a winner id. It is the only
// place this derivation lives. A nil return with no error means the winner
// does not match either team.
func DeriveResult(team1ID, team2ID, winnerID *string) (*models.MatchResult, error) {
	if winnerID == nil {
		return nil, nil
	}
	if team1ID != nil && *winnerID == *team1ID {
		r := models.ResultTeam1Win
		return &r, nil
	}
	if team2ID != nil && *winnerID == *team2ID {
		r := models.ResultTeam2Win
		return &r, nil
	}
	return nil, fmt.Errorf("winner %s is neither team of the match", *winnerID)
}

// ResultDeltas computes the standings contribution of a completed match for
// both teams. Byes (one team nil) contribute only to the present team.
func ResultDeltas(m *models.Match, cfg ScoreConfig) ([]StandingDelta, error) {
	if m.Status != models.MatchCompleted || m.Result == nil {
		return nil, fmt.Errorf("match %s is not completed", m.ID)
	}

	var deltas []StandingDelta
	if m.Team1ID != nil {
		d := StandingDelta{TeamID: *m.Team1ID, OpponentID: m.Team2ID}
		switch *m.Result {
		case models.ResultTeam1Win:
			d.Wins, d.Points = 1, cfg.PointsPerWin
		case models.ResultTeam2Win:
			d.Losses, d.Points = 1, cfg.PointsPerLoss
		case models.ResultDraw:
			d.Draws, d.Points = 1, cfg.PointsPerDraw
		}
		deltas = append(deltas, d)
	}
	if m.Team2ID != nil {
		d := StandingDelta{TeamID: *m.Team2ID, OpponentID: m.Team1ID}
		switch *m.Result {
		case models.ResultTeam2Win:
			d.Wins, d.Points = 1, cfg.PointsPerWin
		case models.ResultTeam1Win:
			d.Losses, d.Points = 1, cfg.PointsPerLoss
		case models.ResultDraw:
			d.Draws, d.Points = 1, cfg.PointsPerDraw
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

// Negate flips a delta so it subtracts what Apply added.
func (d StandingDelta) Negate() StandingDelta {
	return StandingDelta{
		TeamID:     d.TeamID,
		Wins:       -d.Wins,
		Losses:     -d.Losses,
		Draws:      -d.Draws,
		Points:     -d.Points,
		OpponentID: d.OpponentID,
	}
}

// Apply mutates a participant's accumulators in place. A negative delta
// (from Negate) removes the opponent from the history instead of adding it.
func (d StandingDelta) Apply(p *models.Participant) {
	p.Wins += d.Wins
	p.Losses += d.Losses
	p.Draws += d.Draws
	p.SwissScore += d.Points

	if d.OpponentID == nil {
		return
	}
	removing := d.Wins < 0 || d.Losses < 0 || d.Draws < 0
	if removing {
		for i, id := range p.OpponentsPlayed {
			if id == *d.OpponentID {
				p.OpponentsPlayed = append(p.OpponentsPlayed[:i], p.OpponentsPlayed[i+1:]...)
				break
			}
		}
	} else if !p.HasPlayed(*d.OpponentID) {
		p.OpponentsPlayed = append(p.OpponentsPlayed, *d.OpponentID)
	}
}
