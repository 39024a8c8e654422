package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

func newLifecycleFixture(format models.TournamentFormat, status models.TournamentStatus, teams int) (LifecycleService, *models.Tournament, *memMatchRepo, *memParticipantRepo, *memLogRepo, *fakeHub) {
	tournamentRepo, participantRepo, t := seededTournament(format, status, teams)
	matchRepo := newMemMatchRepo()
	bracketRepo := newMemBracketRepo()
	logRepo := newMemLogRepo()
	hub := &fakeHub{}
	svc := NewLifecycleService(tournamentRepo, participantRepo, bracketRepo, matchRepo,
		passthroughTx{}, logRepo, hub, testLogger())
	return svc, t, matchRepo, participantRepo, logRepo, hub
}

func TestTransitionHappyPath(t *testing.T) {
	svc, tournament, _, _, logRepo, hub := newLifecycleFixture(models.FormatSingleElimination, models.StatusRegistration, 4)

	view, err := svc.Transition(context.Background(), tournament.ID, models.StatusRegistrationClosed, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistrationClosed, view.Status)
	assert.Contains(t, view.ValidTransitions, models.StatusSeeding)
	assert.Contains(t, logRepo.actions(), models.LogStateChanged)
	assert.Contains(t, hub.eventTypes(), "STATE_CHANGED")
}

func TestTransitionReasonRecordedInAudit(t *testing.T) {
	svc, tournament, _, _, logRepo, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusInProgress, 4)

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusPaused, "venue flooded")
	require.NoError(t, err)

	var entry *models.Log
	for _, l := range logRepo.entries {
		if l.Action == models.LogStateChanged {
			entry = l
		}
	}
	require.NotNil(t, entry)
	assert.Contains(t, entry.Details, "In_Progress -> Paused")
	assert.Contains(t, entry.Details, "venue flooded")
}

func TestTransitionRejectionReasonRecordedInAudit(t *testing.T) {
	svc, tournament, _, _, logRepo, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusCompleted, 4)

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusRegistration, "clerical error")
	require.ErrorIs(t, err, ErrInvalidTransition)

	var entry *models.Log
	for _, l := range logRepo.entries {
		if l.Action == models.LogStateChangeRejected {
			entry = l
		}
	}
	require.NotNil(t, entry)
	assert.Contains(t, entry.Details, "clerical error")
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	svc, tournament, _, _, logRepo, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusCompleted, 4)

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusRegistration, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, logRepo.actions(), models.LogStateChangeRejected)
}

func TestTransitionRejectsUnknownState(t *testing.T) {
	svc, tournament, _, _, _, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusRegistration, 4)

	_, err := svc.Transition(context.Background(), tournament.ID, models.TournamentStatus("Imaginary"), "")
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestTransitionGuardMinimumTeams(t *testing.T) {
	svc, tournament, _, _, _, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusRegistrationClosed, 1)

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusSeeding, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionIntoPlayGeneratesRoundOne(t *testing.T) {
	svc, tournament, matchRepo, _, logRepo, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusSeeding, 4)

	view, err := svc.Transition(context.Background(), tournament.ID, models.StatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, view.Status)
	assert.Equal(t, 1, view.CurrentRound)
	assert.Equal(t, 2, view.TotalRounds)

	matches, err := matchRepo.ListByTournament(context.Background(), nil, tournament.ID, repositories.ListMatchesFilter{})
	require.NoError(t, err)
	// 4 teams: two semifinals plus one final shell.
	assert.Len(t, matches, 3)
	assert.Contains(t, logRepo.actions(), models.LogBracketGenerated)
}

func TestTransitionGuardRequiresSeeding(t *testing.T) {
	tournamentRepo, participantRepo, tournament := seededTournament(models.FormatSingleElimination, models.StatusSeeding, 4)
	// Collapse every seed to 1 so the field is not a dense permutation.
	for _, p := range participantRepo.byID {
		p.SeedNumber = 1
	}
	svc := NewLifecycleService(tournamentRepo, participantRepo, newMemBracketRepo(), newMemMatchRepo(),
		passthroughTx{}, newMemLogRepo(), &fakeHub{}, testLogger())

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusInProgress, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionCompletedBlockedByOpenMatches(t *testing.T) {
	svc, tournament, matchRepo, _, _, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusSeeding, 4)

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusInProgress, "")
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), tournament.ID, models.StatusCompleted, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Resolve every match, then completion goes through.
	matches, err := matchRepo.ListByTournament(context.Background(), nil, tournament.ID, repositories.ListMatchesFilter{})
	require.NoError(t, err)
	for _, m := range matches {
		m.Status = models.MatchCompleted
		r := models.ResultTeam1Win
		m.Result = &r
		m.WinnerID = m.Team1ID
		require.NoError(t, matchRepo.Update(context.Background(), nil, m))
	}

	view, err := svc.Transition(context.Background(), tournament.ID, models.StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, view.Status)
	assert.False(t, view.Capabilities.IsTerminal)
	assert.Equal(t, []models.TournamentStatus{models.StatusArchived}, view.ValidTransitions)
}

func TestTransitionPauseAndResumeKeepsRound(t *testing.T) {
	svc, tournament, _, _, _, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusSeeding, 4)

	_, err := svc.Transition(context.Background(), tournament.ID, models.StatusInProgress, "")
	require.NoError(t, err)

	paused, err := svc.Transition(context.Background(), tournament.ID, models.StatusPaused, "")
	require.NoError(t, err)
	assert.Equal(t, 1, paused.CurrentRound)

	resumed, err := svc.Transition(context.Background(), tournament.ID, models.StatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.CurrentRound)
	assert.Equal(t, 2, resumed.TotalRounds)
}

func TestGetLifecycleUnknownTournament(t *testing.T) {
	svc, _, _, _, _, _ := newLifecycleFixture(models.FormatSingleElimination, models.StatusRegistration, 4)

	_, err := svc.GetLifecycle(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTournamentNotFound)
}
