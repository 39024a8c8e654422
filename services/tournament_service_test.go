package services

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/storage"
)

type fakeUploader struct {
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func newTournamentFixture() (TournamentService, *memTournamentRepo, *memParticipantRepo, *fakeUploader) {
	tournamentRepo := newMemTournamentRepo()
	participantRepo := newMemParticipantRepo()
	uploader := newFakeUploader()
	svc := NewTournamentService(tournamentRepo, participantRepo, newMemBracketRepo(), newMemMatchRepo(),
		passthroughTx{}, uploader, testLogger())
	return svc, tournamentRepo, participantRepo, uploader
}

func TestCreateTournamentDefaultsAndSlug(t *testing.T) {
	svc, _, _, _ := newTournamentFixture()

	created, err := svc.Create(context.Background(), CreateTournamentInput{
		Name:     "Riftline Open 2026!",
		Format:   models.FormatSwiss,
		MaxTeams: 16,
	})
	require.NoError(t, err)
	assert.Equal(t, "riftline-open-2026", created.Slug)
	assert.Equal(t, models.StatusRegistration, created.Status)
	assert.Equal(t, 3, created.Swiss.PointsPerWin)
	assert.Equal(t, 1, created.Swiss.PointsPerDraw)
}

func TestCreateTournamentRejectsBadInput(t *testing.T) {
	svc, _, _, _ := newTournamentFixture()

	_, err := svc.Create(context.Background(), CreateTournamentInput{Name: "  ", Format: models.FormatSwiss, MaxTeams: 8})
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: "Ladder", MaxTeams: 8})
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSwiss, MaxTeams: 1})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestCreateTournamentSlugConflict(t *testing.T) {
	svc, _, _, _ := newTournamentFixture()

	_, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Spring Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateTournamentInput{Name: "Spring Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.ErrorIs(t, err, ErrTournamentSlugConflict)
}

func TestRegisterTeamAssignsNextSeed(t *testing.T) {
	svc, _, _, _ := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSingleElimination, MaxTeams: 4})
	require.NoError(t, err)

	first, err := svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "alpha"})
	require.NoError(t, err)
	second, err := svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.SeedNumber)
	assert.Equal(t, 2, second.SeedNumber)

	_, err = svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "alpha"})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestRegisterTeamCapacityAndState(t *testing.T) {
	svc, tournamentRepo, _, _ := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSingleElimination, MaxTeams: 2})
	require.NoError(t, err)

	_, err = svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "alpha"})
	require.NoError(t, err)
	_, err = svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "beta"})
	require.NoError(t, err)
	_, err = svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "gamma"})
	require.ErrorIs(t, err, ErrValidationFailed)

	require.NoError(t, tournamentRepo.UpdateStatus(context.Background(), nil, created.ID, models.StatusRegistrationClosed))
	_, err = svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "delta"})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestUploadBannerReplacesPrevious(t *testing.T) {
	svc, _, _, uploader := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.NoError(t, err)

	first, err := svc.UploadBanner(context.Background(), created.ID, "image/png", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	require.NotNil(t, first.BannerKey)
	require.NotNil(t, first.BannerURL)

	second, err := svc.UploadBanner(context.Background(), created.ID, "image/jpeg", bytes.NewReader([]byte("two")))
	require.NoError(t, err)
	require.NotNil(t, second.BannerKey)
	assert.NotEqual(t, *first.BannerKey, *second.BannerKey)
	assert.Contains(t, uploader.deleted, *first.BannerKey)
}

func TestUploadBannerRejectsContentType(t *testing.T) {
	svc, _, _, _ := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.NoError(t, err)

	_, err = svc.UploadBanner(context.Background(), created.ID, "application/pdf", bytes.NewReader([]byte("x")))
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestUploadBannerWithoutUploaderConfigured(t *testing.T) {
	svc := NewTournamentService(newMemTournamentRepo(), newMemParticipantRepo(),
		newMemBracketRepo(), newMemMatchRepo(), passthroughTx{}, nil, testLogger())

	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.NoError(t, err)

	_, err = svc.UploadBanner(context.Background(), created.ID, "image/png", bytes.NewReader([]byte("one")))
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestRemoveBanner(t *testing.T) {
	svc, tournamentRepo, _, uploader := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.NoError(t, err)

	uploaded, err := svc.UploadBanner(context.Background(), created.ID, "image/png", bytes.NewReader([]byte("one")))
	require.NoError(t, err)
	require.NoError(t, svc.RemoveBanner(context.Background(), created.ID))
	assert.Contains(t, uploader.deleted, *uploaded.BannerKey)

	stored, err := tournamentRepo.GetByID(context.Background(), nil, created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.BannerKey)

	// Removing again is a no-op.
	require.NoError(t, svc.RemoveBanner(context.Background(), created.ID))
}

func TestWithdrawTeamDeactivates(t *testing.T) {
	svc, _, participantRepo, _ := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSwiss, MaxTeams: 8})
	require.NoError(t, err)

	p, err := svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "alpha"})
	require.NoError(t, err)
	require.NoError(t, svc.WithdrawTeam(context.Background(), created.ID, p.ID))

	stored, err := participantRepo.GetByID(context.Background(), nil, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestWithdrawTeamCompactsSeedsBeforeStructure(t *testing.T) {
	svc, _, participantRepo, _ := newTournamentFixture()
	created, err := svc.Create(context.Background(), CreateTournamentInput{Name: "Cup", Format: models.FormatSingleElimination, MaxTeams: 8})
	require.NoError(t, err)

	teams := []string{"alpha", "beta", "gamma", "delta"}
	registered := make([]*models.Participant, len(teams))
	for i, team := range teams {
		registered[i], err = svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: team})
		require.NoError(t, err)
	}

	// Withdrawing seed 2 must not leave a hole in the active 1..N range.
	require.NoError(t, svc.WithdrawTeam(context.Background(), created.ID, registered[1].ID))

	active, err := participantRepo.ListByTournament(context.Background(), nil, created.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 3)
	require.NoError(t, validateDenseSeeding(active))
	assert.Equal(t, "alpha", active[0].TeamID)
	assert.Equal(t, "gamma", active[1].TeamID)
	assert.Equal(t, "delta", active[2].TeamID)

	withdrawn, err := participantRepo.GetByID(context.Background(), nil, registered[1].ID)
	require.NoError(t, err)
	assert.False(t, withdrawn.IsActive)
	assert.Equal(t, 4, withdrawn.SeedNumber)

	// A later registration slots into the active range, not past the
	// withdrawn team's trailing seed.
	late, err := svc.RegisterTeam(context.Background(), created.ID, RegisterTeamInput{TeamID: "epsilon"})
	require.NoError(t, err)
	assert.Equal(t, 4, late.SeedNumber)

	active, err = participantRepo.ListByTournament(context.Background(), nil, created.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 4)
	require.NoError(t, validateDenseSeeding(active))
}
