package brackets

import (
	"fmt"
	"math"
	"sort"

	"github.com/riftline/tournament-engine/models"
)

// SingleElimination builds a knockout tree sized to the next power of two
// above the participant count. Seeds beyond the count become byes that
// auto-advance their opponent with a synthetic completed match.
type SingleElimination struct{}

func (g *SingleElimination) Format() models.TournamentFormat {
	return models.FormatSingleElimination
}

// SeedOrder produces the classic bracket seeding order for a power-of-two
// bracket size, as zero-based indexes into a seed-sorted list. For 8 slots:
// [0 7 3 4 1 6 2 5], i.e. 1v8, 4v5, 2v7, 3v6, so top seeds cannot meet
// until the latest possible round.
func SeedOrder(bracketSize int) []int {
	if bracketSize <= 2 {
		return []int{0, 1}
	}
	sub := SeedOrder(bracketSize / 2)
	order := make([]int, 0, bracketSize)
	for _, s := range sub {
		order = append(order, s, bracketSize-1-s)
	}
	return order
}

// NextPosition returns the bracket position in round r+1 fed by the given
// position in round r.
func NextPosition(bracketPosition int) int {
	return (bracketPosition + 1) / 2
}

// FeedsTeam1 reports whether a winner at the given position lands in the
// team1 slot of its next-round match (odd positions feed team1).
func FeedsTeam1(bracketPosition int) bool {
	return bracketPosition%2 == 1
}

// Rounds returns ceil(log2(n)) for n >= 2.
func Rounds(teamCount int) int {
	return int(math.Ceil(math.Log2(float64(teamCount))))
}

func (g *SingleElimination) GenerateInitial(seeds []Seed) (*RoundProposal, error) {
	n := len(seeds)
	if n < 2 {
		return nil, fmt.Errorf("at least 2 participants required, have %d", n)
	}

	sorted := make([]Seed, n)
	copy(sorted, seeds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SeedNumber < sorted[j].SeedNumber })

	totalRounds := Rounds(n)
	bracketSize := 1 << uint(totalRounds)
	byeCount := bracketSize - n
	order := SeedOrder(bracketSize)

	proposal := &RoundProposal{
		Format:      models.FormatSingleElimination,
		TotalRounds: totalRounds,
		ByeCount:    byeCount,
	}

	for round := 1; round <= totalRounds; round++ {
		matchesInRound := bracketSize >> uint(round)
		for pos := 1; pos <= matchesInRound; pos++ {
			proposal.Slots = append(proposal.Slots, SlotProposal{
				RoundNumber:     round,
				BracketPosition: pos,
				IsFinal:         round == totalRounds,
			})
		}
	}

	// Round 1: place teams by seed order; slots past the participant count
	// are byes, auto-completed in favor of the present team.
	firstRound := bracketSize / 2
	for i := 0; i < firstRound; i++ {
		var team1, team2 *string
		if idx := order[i*2]; idx < n {
			team1 = &sorted[idx].TeamID
		}
		if idx := order[i*2+1]; idx < n {
			team2 = &sorted[idx].TeamID
		}

		m := MatchProposal{
			RoundNumber:     1,
			BracketPosition: i + 1,
			Team1ID:         team1,
			Team2ID:         team2,
			Status:          models.MatchScheduled,
		}
		switch {
		case team1 != nil && team2 == nil:
			m.Status = models.MatchCompleted
			m.WinnerID = team1
			r := models.ResultTeam1Win
			m.Result = &r
		case team2 != nil && team1 == nil:
			m.Status = models.MatchCompleted
			m.WinnerID = team2
			r := models.ResultTeam2Win
			m.Result = &r
		}
		proposal.Matches = append(proposal.Matches, m)
	}

	// Rounds 2..R: empty shells awaiting winners.
	for round := 2; round <= totalRounds; round++ {
		matchesInRound := bracketSize >> uint(round)
		for pos := 1; pos <= matchesInRound; pos++ {
			proposal.Matches = append(proposal.Matches, MatchProposal{
				RoundNumber:     round,
				BracketPosition: pos,
				Status:          models.MatchScheduled,
			})
		}
	}

	// Pre-advance bye winners into their round-2 slots.
	for i := range proposal.Matches {
		m := &proposal.Matches[i]
		if m.RoundNumber != 1 || m.Status != models.MatchCompleted || m.WinnerID == nil {
			continue
		}
		nextPos := NextPosition(m.BracketPosition)
		for j := range proposal.Matches {
			next := &proposal.Matches[j]
			if next.RoundNumber != 2 || next.BracketPosition != nextPos {
				continue
			}
			if FeedsTeam1(m.BracketPosition) {
				next.Team1ID = m.WinnerID
			} else {
				next.Team2ID = m.WinnerID
			}
			break
		}
	}

	if err := validateProposal(proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// PairRound is not used for single elimination: later rounds are created as
// shells up front and filled by round advancement.
func (g *SingleElimination) PairRound([]Standing, int) (*RoundProposal, error) {
	return nil, fmt.Errorf("single elimination rounds are pre-built: %w", ErrFormatNotSupported)
}

// validateProposal checks structural soundness: no self-play, no duplicate
// round-1 appearances, and the expected slot count for the tree size.
func validateProposal(p *RoundProposal) error {
	expectedSlots := (1 << uint(p.TotalRounds)) - 1
	if len(p.Slots) != expectedSlots {
		return fmt.Errorf("expected %d bracket slots for %d rounds, built %d", expectedSlots, p.TotalRounds, len(p.Slots))
	}

	seen := make(map[string]bool)
	for _, m := range p.Matches {
		if m.Team1ID != nil && m.Team2ID != nil && *m.Team1ID == *m.Team2ID {
			return fmt.Errorf("round %d position %d: team %s plays itself", m.RoundNumber, m.BracketPosition, *m.Team1ID)
		}
		if m.RoundNumber != 1 {
			continue
		}
		for _, id := range []*string{m.Team1ID, m.Team2ID} {
			if id == nil {
				continue
			}
			if seen[*id] {
				return fmt.Errorf("team %s appears in multiple round-1 slots", *id)
			}
			seen[*id] = true
		}
	}
	return nil
}
