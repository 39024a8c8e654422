package brackets

import (
	"fmt"
	"sort"

	"github.com/riftline/tournament-engine/models"
)

// Swiss pairs teams of similar standing each round. The pairer is the
// simplified split-by-rank variant: participants are sorted by cumulative
// score and paired adjacently, without consulting opponent history. An odd
// field yields exactly one bye, awarded to the lowest-ranked team and
// recorded as an auto-completed win.
type Swiss struct{}

func (g *Swiss) Format() models.TournamentFormat {
	return models.FormatSwiss
}

func (g *Swiss) GenerateInitial(seeds []Seed) (*RoundProposal, error) {
	standings := make([]Standing, len(seeds))
	for i, s := range seeds {
		standings[i] = Standing{TeamID: s.TeamID, SeedNumber: s.SeedNumber}
	}
	return g.PairRound(standings, 1)
}

func (g *Swiss) PairRound(standings []Standing, round int) (*RoundProposal, error) {
	n := len(standings)
	if n < 2 {
		return nil, fmt.Errorf("at least 2 active participants required, have %d", n)
	}
	if round < 1 {
		return nil, fmt.Errorf("invalid round number %d", round)
	}

	sorted := make([]Standing, n)
	copy(sorted, standings)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SwissScore != b.SwissScore {
			return a.SwissScore > b.SwissScore
		}
		if a.Tiebreaker != b.Tiebreaker {
			return a.Tiebreaker > b.Tiebreaker
		}
		return a.SeedNumber < b.SeedNumber
	})

	proposal := &RoundProposal{
		Format:      models.FormatSwiss,
		TotalRounds: 0, // swiss round count lives on the tournament record
	}

	for i := 0; i < n; i += 2 {
		pos := i/2 + 1
		team1 := sorted[i].TeamID
		m := MatchProposal{
			RoundNumber:     round,
			BracketPosition: pos,
			Team1ID:         &team1,
			Status:          models.MatchScheduled,
		}
		if i+1 < n {
			team2 := sorted[i+1].TeamID
			m.Team2ID = &team2
		} else {
			// Lowest-ranked remaining team gets the bye.
			m.Status = models.MatchCompleted
			m.WinnerID = &team1
			r := models.ResultTeam1Win
			m.Result = &r
			proposal.ByeCount = 1
		}
		proposal.Matches = append(proposal.Matches, m)
	}

	return proposal, nil
}
