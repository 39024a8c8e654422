package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftline/tournament-engine/models"
)

func swissStandings(scores ...int) []Standing {
	standings := make([]Standing, len(scores))
	for i, score := range scores {
		standings[i] = Standing{
			TeamID:     string(rune('a' + i)),
			SeedNumber: i + 1,
			SwissScore: score,
		}
	}
	return standings
}

func TestSwissPairsAdjacentByScore(t *testing.T) {
	g := &Swiss{}
	// Seeds a..f with scores 6,0,3,6,3,0.
	proposal, err := g.PairRound(swissStandings(6, 0, 3, 6, 3, 0), 2)
	require.NoError(t, err)
	require.Len(t, proposal.Matches, 3)
	assert.Zero(t, proposal.ByeCount)

	// Sorted order: a(6) d(6) c(3) e(3) b(0) f(0).
	pairs := [][2]string{
		{*proposal.Matches[0].Team1ID, *proposal.Matches[0].Team2ID},
		{*proposal.Matches[1].Team1ID, *proposal.Matches[1].Team2ID},
		{*proposal.Matches[2].Team1ID, *proposal.Matches[2].Team2ID},
	}
	assert.Equal(t, [2]string{"a", "d"}, pairs[0])
	assert.Equal(t, [2]string{"c", "e"}, pairs[1])
	assert.Equal(t, [2]string{"b", "f"}, pairs[2])
}

func TestSwissTiebreakerOrdersEqualScores(t *testing.T) {
	g := &Swiss{}
	standings := []Standing{
		{TeamID: "low-tb", SeedNumber: 1, SwissScore: 3, Tiebreaker: 2},
		{TeamID: "high-tb", SeedNumber: 2, SwissScore: 3, Tiebreaker: 9},
		{TeamID: "third", SeedNumber: 3, SwissScore: 0},
		{TeamID: "fourth", SeedNumber: 4, SwissScore: 0},
	}
	proposal, err := g.PairRound(standings, 3)
	require.NoError(t, err)
	assert.Equal(t, "high-tb", *proposal.Matches[0].Team1ID)
	assert.Equal(t, "low-tb", *proposal.Matches[0].Team2ID)
}

func TestSwissOddFieldLowestRankedGetsBye(t *testing.T) {
	g := &Swiss{}
	proposal, err := g.PairRound(swissStandings(6, 3, 0), 2)
	require.NoError(t, err)
	require.Len(t, proposal.Matches, 2)
	assert.Equal(t, 1, proposal.ByeCount)

	bye := proposal.Matches[1]
	assert.Equal(t, "c", *bye.Team1ID)
	assert.Nil(t, bye.Team2ID)
	assert.Equal(t, models.MatchCompleted, bye.Status)
	require.NotNil(t, bye.Result)
	assert.Equal(t, models.ResultTeam1Win, *bye.Result)
	require.NotNil(t, bye.WinnerID)
	assert.Equal(t, "c", *bye.WinnerID)
}

func TestSwissGenerateInitialPairsBySeed(t *testing.T) {
	g := &Swiss{}
	seeds := []Seed{
		{TeamID: "third", SeedNumber: 3},
		{TeamID: "first", SeedNumber: 1},
		{TeamID: "fourth", SeedNumber: 4},
		{TeamID: "second", SeedNumber: 2},
	}
	proposal, err := g.GenerateInitial(seeds)
	require.NoError(t, err)
	require.Len(t, proposal.Matches, 2)
	assert.Equal(t, "first", *proposal.Matches[0].Team1ID)
	assert.Equal(t, "second", *proposal.Matches[0].Team2ID)
	assert.Equal(t, "third", *proposal.Matches[1].Team1ID)
	assert.Equal(t, "fourth", *proposal.Matches[1].Team2ID)
}

func TestSwissRejectsTinyField(t *testing.T) {
	g := &Swiss{}
	_, err := g.PairRound(swissStandings(0), 1)
	require.Error(t, err)
	_, err = g.PairRound(swissStandings(), 1)
	require.Error(t, err)
}

func TestSwissRejectsInvalidRound(t *testing.T) {
	g := &Swiss{}
	_, err := g.PairRound(swissStandings(0, 0), 0)
	require.Error(t, err)
}
