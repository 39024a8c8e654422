package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftline/tournament-engine/models"
)

func newBracketFixture(format models.TournamentFormat, status models.TournamentStatus, teams int) (BracketService, *models.Tournament, *memLogRepo) {
	tournamentRepo, participantRepo, tournament := seededTournament(format, status, teams)
	logRepo := newMemLogRepo()
	svc := NewBracketService(tournamentRepo, participantRepo, newMemBracketRepo(), newMemMatchRepo(),
		passthroughTx{}, logRepo, &fakeHub{}, testLogger())
	return svc, tournament, logRepo
}

func TestGenerateSingleEliminationWithByes(t *testing.T) {
	svc, tournament, logRepo := newBracketFixture(models.FormatSingleElimination, models.StatusSeeding, 5)

	view, err := svc.Generate(context.Background(), tournament.ID)
	require.NoError(t, err)

	// 5 teams round up to an 8 slot tree: 7 slots, 7 matches, 3 byes.
	assert.Len(t, view.Slots, 7)
	assert.Len(t, view.Matches, 7)
	assert.Equal(t, 3, view.Tournament.TotalRounds)

	byes := 0
	for _, m := range view.Matches {
		if m.RoundNumber == 1 && m.Status == models.MatchCompleted {
			byes++
		}
	}
	assert.Equal(t, 3, byes)
	assert.Contains(t, logRepo.actions(), models.LogBracketGenerated)
}

func TestGenerateLinksMatchesToSlots(t *testing.T) {
	svc, tournament, _ := newBracketFixture(models.FormatSingleElimination, models.StatusSeeding, 4)

	view, err := svc.Generate(context.Background(), tournament.ID)
	require.NoError(t, err)

	slotByID := make(map[string]*models.Bracket)
	for _, b := range view.Slots {
		slotByID[b.ID] = b
	}
	for _, m := range view.Matches {
		require.NotNil(t, m.BracketID)
		slot, ok := slotByID[*m.BracketID]
		require.True(t, ok)
		assert.Equal(t, m.RoundNumber, slot.RoundNumber)
		assert.Equal(t, m.MatchNumber, slot.BracketPosition)
	}
}

func TestGenerateSwissHasNoSlots(t *testing.T) {
	svc, tournament, _ := newBracketFixture(models.FormatSwiss, models.StatusSeeding, 6)

	view, err := svc.Generate(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Slots)
	assert.Len(t, view.Matches, 3)
	assert.Equal(t, tournament.Swiss.Rounds, view.Tournament.TotalRounds)
	for _, m := range view.Matches {
		assert.Nil(t, m.BracketID)
	}
}

func TestGenerateRejectsSecondCall(t *testing.T) {
	svc, tournament, _ := newBracketFixture(models.FormatSingleElimination, models.StatusSeeding, 4)

	_, err := svc.Generate(context.Background(), tournament.ID)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), tournament.ID)
	require.ErrorIs(t, err, ErrBracketAlreadyExists)
}

func TestGenerateRejectsWrongState(t *testing.T) {
	svc, tournament, _ := newBracketFixture(models.FormatSingleElimination, models.StatusRegistration, 4)

	_, err := svc.Generate(context.Background(), tournament.ID)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestGenerateRejectsTinyField(t *testing.T) {
	svc, tournament, _ := newBracketFixture(models.FormatSingleElimination, models.StatusSeeding, 1)

	_, err := svc.Generate(context.Background(), tournament.ID)
	require.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestGenerateRejectsUnsupportedFormat(t *testing.T) {
	svc, tournament, _ := newBracketFixture(models.FormatRoundRobin, models.StatusSeeding, 4)

	_, err := svc.Generate(context.Background(), tournament.ID)
	require.ErrorIs(t, err, ErrFormatNotSupported)
}

func TestGenerateRejectsSparseSeeding(t *testing.T) {
	tournamentRepo, participantRepo, tournament := seededTournament(models.FormatSingleElimination, models.StatusSeeding, 4)
	for _, p := range participantRepo.byID {
		p.SeedNumber += 3
	}
	svc := NewBracketService(tournamentRepo, participantRepo, newMemBracketRepo(), newMemMatchRepo(),
		passthroughTx{}, newMemLogRepo(), &fakeHub{}, testLogger())

	_, err := svc.Generate(context.Background(), tournament.ID)
	require.ErrorIs(t, err, ErrSeedingInvalid)
}

func TestGetBracketViewUnknownTournament(t *testing.T) {
	svc, _, _ := newBracketFixture(models.FormatSingleElimination, models.StatusSeeding, 4)

	_, err := svc.GetBracketView(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTournamentNotFound)
}
