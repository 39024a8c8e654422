package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftline/tournament-engine/models"
)

var standardScoring = ScoreConfig{PointsPerWin: 3, PointsPerDraw: 1}

func completedMatch(team1, team2 string, result models.MatchResult) *models.Match {
	m := &models.Match{
		Team1ID: &team1,
		Team2ID: &team2,
		Status:  models.MatchCompleted,
		Result:  &result,
	}
	switch result {
	case models.ResultTeam1Win:
		m.WinnerID = &team1
	case models.ResultTeam2Win:
		m.WinnerID = &team2
	}
	return m
}

func TestDeriveResult(t *testing.T) {
	team1, team2, other := "a", "b", "z"

	result, err := DeriveResult(&team1, &team2, &team1)
	require.NoError(t, err)
	assert.Equal(t, models.ResultTeam1Win, *result)

	result, err = DeriveResult(&team1, &team2, &team2)
	require.NoError(t, err)
	assert.Equal(t, models.ResultTeam2Win, *result)

	result, err = DeriveResult(&team1, &team2, nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = DeriveResult(&team1, &team2, &other)
	require.Error(t, err)
}

func TestResultDeltasForWin(t *testing.T) {
	deltas, err := ResultDeltas(completedMatch("a", "b", models.ResultTeam1Win), standardScoring)
	require.NoError(t, err)
	require.Len(t, deltas, 2)

	assert.Equal(t, "a", deltas[0].TeamID)
	assert.Equal(t, 1, deltas[0].Wins)
	assert.Equal(t, 3, deltas[0].Points)
	assert.Equal(t, "b", deltas[1].TeamID)
	assert.Equal(t, 1, deltas[1].Losses)
	assert.Equal(t, 0, deltas[1].Points)
}

func TestResultDeltasForDraw(t *testing.T) {
	deltas, err := ResultDeltas(completedMatch("a", "b", models.ResultDraw), standardScoring)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	for _, d := range deltas {
		assert.Equal(t, 1, d.Draws)
		assert.Equal(t, 1, d.Points)
	}
}

func TestResultDeltasForBye(t *testing.T) {
	team := "a"
	result := models.ResultTeam1Win
	m := &models.Match{
		Team1ID:  &team,
		Status:   models.MatchCompleted,
		Result:   &result,
		WinnerID: &team,
	}
	deltas, err := ResultDeltas(m, standardScoring)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, 1, deltas[0].Wins)
	assert.Nil(t, deltas[0].OpponentID)
}

func TestResultDeltasRejectsOpenMatch(t *testing.T) {
	team1, team2 := "a", "b"
	m := &models.Match{Team1ID: &team1, Team2ID: &team2, Status: models.MatchScheduled}
	_, err := ResultDeltas(m, standardScoring)
	require.Error(t, err)
}

func TestApplyAndNegateCancelExactly(t *testing.T) {
	p := &models.Participant{TeamID: "a", OpponentsPlayed: []string{}}
	deltas, err := ResultDeltas(completedMatch("a", "b", models.ResultTeam1Win), standardScoring)
	require.NoError(t, err)

	deltas[0].Apply(p)
	assert.Equal(t, 1, p.Wins)
	assert.Equal(t, 3, p.SwissScore)
	assert.Equal(t, []string{"b"}, p.OpponentsPlayed)

	deltas[0].Negate().Apply(p)
	assert.Zero(t, p.Wins)
	assert.Zero(t, p.SwissScore)
	assert.Empty(t, p.OpponentsPlayed)
}

func TestApplyDoesNotDuplicateOpponent(t *testing.T) {
	p := &models.Participant{TeamID: "a", OpponentsPlayed: []string{"b"}}
	deltas, err := ResultDeltas(completedMatch("a", "b", models.ResultTeam1Win), standardScoring)
	require.NoError(t, err)

	deltas[0].Apply(p)
	assert.Equal(t, []string{"b"}, p.OpponentsPlayed)
}
