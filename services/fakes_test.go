package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTx runs the unit of work without a real transaction so the
// in-memory repositories can be exercised directly.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeHub struct {
	mu     sync.Mutex
	events []brackets.Event
}

func (h *fakeHub) Publish(event brackets.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *fakeHub) eventTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.events))
	for i, e := range h.events {
		types[i] = e.Type
	}
	return types
}

// --- tournaments ---

type memTournamentRepo struct {
	byID map[string]*models.Tournament
}

func newMemTournamentRepo(ts ...*models.Tournament) *memTournamentRepo {
	r := &memTournamentRepo{byID: make(map[string]*models.Tournament)}
	for _, t := range ts {
		r.byID[t.ID] = t
	}
	return r
}

func (r *memTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	for _, existing := range r.byID {
		if existing.Slug == t.Slug {
			return repositories.ErrTournamentSlugConflict
		}
	}
	t.CreatedAt = time.Now()
	copied := *t
	r.byID[t.ID] = &copied
	return nil
}

func (r *memTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.byID))
	for _, t := range r.byID {
		if filter.Format != nil && t.Format != *filter.Format {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id string, status models.TournamentStatus) error {
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *memTournamentRepo) UpdateRounds(ctx context.Context, exec repositories.SQLExecutor, id string, currentRound, totalRounds int) error {
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentRound = currentRound
	t.TotalRounds = totalRounds
	return nil
}

func (r *memTournamentRepo) UpdateBannerKey(ctx context.Context, id string, bannerKey *string) error {
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *memTournamentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.byID, id)
	return nil
}

// --- participants ---

type memParticipantRepo struct {
	byID map[string]*models.Participant
}

func newMemParticipantRepo(ps ...*models.Participant) *memParticipantRepo {
	r := &memParticipantRepo{byID: make(map[string]*models.Participant)}
	for _, p := range ps {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.OpponentsPlayed == nil {
			p.OpponentsPlayed = []string{}
		}
		r.byID[p.ID] = p
	}
	return r
}

func (r *memParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, existing := range r.byID {
		if existing.TournamentID == p.TournamentID && existing.TeamID == p.TeamID {
			return repositories.ErrParticipantTeamConflict
		}
	}
	p.CreatedAt = time.Now()
	copied := *p
	r.byID[p.ID] = &copied
	return nil
}

func (r *memParticipantRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Participant, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memParticipantRepo) GetByTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID string) (*models.Participant, error) {
	for _, p := range r.byID {
		if p.TournamentID == tournamentID && p.TeamID == teamID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *memParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, activeOnly bool) ([]*models.Participant, error) {
	out := make([]*models.Participant, 0)
	for _, p := range r.byID {
		if p.TournamentID != tournamentID {
			continue
		}
		if activeOnly && !p.IsActive {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeedNumber < out[j].SeedNumber })
	return out, nil
}

func (r *memParticipantRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) (int, error) {
	count := 0
	for _, p := range r.byID {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *memParticipantRepo) UpdateSeeds(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, seedByParticipantID map[string]int) error {
	for id, seed := range seedByParticipantID {
		p, ok := r.byID[id]
		if !ok || p.TournamentID != tournamentID {
			return repositories.ErrParticipantNotFound
		}
		p.SeedNumber = seed
	}
	return nil
}

func (r *memParticipantRepo) UpdateStanding(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	stored, ok := r.byID[p.ID]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	stored.IsActive = p.IsActive
	stored.Wins = p.Wins
	stored.Losses = p.Losses
	stored.Draws = p.Draws
	stored.SwissScore = p.SwissScore
	stored.Tiebreaker = p.Tiebreaker
	stored.Buchholz = p.Buchholz
	stored.OpponentsPlayed = append([]string(nil), p.OpponentsPlayed...)
	return nil
}

func (r *memParticipantRepo) SetActive(ctx context.Context, exec repositories.SQLExecutor, id string, active bool) error {
	p, ok := r.byID[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.IsActive = active
	return nil
}

func (r *memParticipantRepo) ResetStandings(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) error {
	for _, p := range r.byID {
		if p.TournamentID != tournamentID {
			continue
		}
		p.IsActive = true
		p.Wins, p.Losses, p.Draws = 0, 0, 0
		p.SwissScore, p.Tiebreaker, p.Buchholz = 0, 0, 0
		p.OpponentsPlayed = []string{}
	}
	return nil
}

// --- brackets ---

type memBracketRepo struct {
	byID map[string]*models.Bracket
}

func newMemBracketRepo() *memBracketRepo {
	return &memBracketRepo{byID: make(map[string]*models.Bracket)}
}

func (r *memBracketRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, slots []*models.Bracket) error {
	for _, b := range slots {
		for _, existing := range r.byID {
			if existing.TournamentID == b.TournamentID &&
				existing.RoundNumber == b.RoundNumber &&
				existing.BracketPosition == b.BracketPosition {
				return repositories.ErrBracketSlotConflict
			}
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.CreatedAt = time.Now()
		copied := *b
		r.byID[b.ID] = &copied
	}
	return nil
}

func (r *memBracketRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Bracket, error) {
	b, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memBracketRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]*models.Bracket, error) {
	out := make([]*models.Bracket, 0)
	for _, b := range r.byID {
		if b.TournamentID == tournamentID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].BracketPosition < out[j].BracketPosition
	})
	return out, nil
}

func (r *memBracketRepo) ExistsForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) (bool, error) {
	for _, b := range r.byID {
		if b.TournamentID == tournamentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBracketRepo) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, roundNumber int) error {
	for id, b := range r.byID {
		if b.TournamentID == tournamentID && b.RoundNumber == roundNumber {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memBracketRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) error {
	for id, b := range r.byID {
		if b.TournamentID == tournamentID {
			delete(r.byID, id)
		}
	}
	return nil
}

// --- matches ---

type memMatchRepo struct {
	byID map[string]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{byID: make(map[string]*models.Match)}
}

func (r *memMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.CreatedAt = time.Now()
		copied := *m
		r.byID[m.ID] = &copied
	}
	return nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Match, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *memMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, filter repositories.ListMatchesFilter) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.byID {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.RoundNumber > 0 && m.RoundNumber != filter.RoundNumber {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r *memMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	stored, ok := r.byID[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.Team1Score = m.Team1Score
	stored.Team2Score = m.Team2Score
	stored.Status = m.Status
	stored.Result = m.Result
	stored.WinnerID = m.WinnerID
	return nil
}

func (r *memMatchRepo) SetTeam(ctx context.Context, exec repositories.SQLExecutor, matchID string, team1 bool, teamID *string) error {
	m, ok := r.byID[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if team1 {
		m.Team1ID = teamID
	} else {
		m.Team2ID = teamID
	}
	return nil
}

func (r *memMatchRepo) CountIncomplete(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) (int, error) {
	count := 0
	for _, m := range r.byID {
		if m.TournamentID != tournamentID || m.Status == models.MatchCompleted {
			continue
		}
		if m.Team1ID == nil && m.Team2ID == nil {
			continue
		}
		count++
	}
	return count, nil
}

func (r *memMatchRepo) CountIncompleteForRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, roundNumber int) (int, error) {
	count := 0
	for _, m := range r.byID {
		if m.TournamentID == tournamentID && m.RoundNumber == roundNumber && m.Status != models.MatchCompleted {
			count++
		}
	}
	return count, nil
}

func (r *memMatchRepo) ExistsForRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, roundNumber int) (bool, error) {
	for _, m := range r.byID {
		if m.TournamentID == tournamentID && m.RoundNumber == roundNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMatchRepo) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, roundNumber int) error {
	for id, m := range r.byID {
		if m.TournamentID == tournamentID && m.RoundNumber == roundNumber {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) error {
	for id, m := range r.byID {
		if m.TournamentID == tournamentID {
			delete(r.byID, id)
		}
	}
	return nil
}

// --- logs ---

type memLogRepo struct {
	entries []*models.Log
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{}
}

func (r *memLogRepo) Append(ctx context.Context, exec repositories.SQLExecutor, entry *models.Log) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *memLogRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, limit int) ([]*models.Log, error) {
	out := make([]*models.Log, 0)
	for _, l := range r.entries {
		if l.TournamentID == tournamentID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLogRepo) actions() []string {
	out := make([]string, len(r.entries))
	for i, l := range r.entries {
		out[i] = l.Action
	}
	return out
}

// --- test data builders ---

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func statusPtr(s models.MatchStatus) *models.MatchStatus { return &s }

func resultPtr(r models.MatchResult) *models.MatchResult { return &r }

func seededTournament(format models.TournamentFormat, status models.TournamentStatus, teams int) (*memTournamentRepo, *memParticipantRepo, *models.Tournament) {
	t := &models.Tournament{
		ID:       uuid.NewString(),
		Name:     "Test Cup",
		Slug:     "test-cup",
		Format:   format,
		Status:   status,
		MaxTeams: 32,
		Swiss: models.SwissSettings{
			Rounds:        4,
			PointsPerWin:  3,
			PointsPerDraw: 1,
		},
	}
	participants := make([]*models.Participant, teams)
	for i := 0; i < teams; i++ {
		participants[i] = &models.Participant{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			TeamID:       fmt.Sprintf("team-%d", i+1),
			SeedNumber:   i + 1,
			IsActive:     true,
		}
	}
	return newMemTournamentRepo(t), newMemParticipantRepo(participants...), t
}
