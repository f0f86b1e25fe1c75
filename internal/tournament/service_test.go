// internal/tournament/service_test.go
package tournament

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opopina/logiverse/internal/models"
)

// mockPublisher collects global events instead of sending them over WS.
type mockPublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (mp *mockPublisher) PublishGlobal(msg map[string]interface{}) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.events = append(mp.events, msg)
}

func (mp *mockPublisher) lastEvent() map[string]interface{} {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.events) == 0 {
		return nil
	}
	return mp.events[len(mp.events)-1]
}

func (mp *mockPublisher) eventTypes() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	var out []string
	for _, ev := range mp.events {
		t, _ := ev["type"].(string)
		out = append(out, t)
	}
	return out
}

// fakeStore is an in-memory Store recording what was persisted.
type fakeStore struct {
	mu           sync.Mutex
	tournaments  map[uuid.UUID]models.Tournament
	participants map[uuid.UUID][]models.TournamentParticipant
	matches      map[uuid.UUID]models.TournamentMatch
	completions  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments:  make(map[uuid.UUID]models.Tournament),
		participants: make(map[uuid.UUID][]models.TournamentParticipant),
		matches:      make(map[uuid.UUID]models.TournamentMatch),
	}
}

func (fs *fakeStore) InsertTournament(_ context.Context, t *models.Tournament) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tournaments[t.ID] = *t
	return nil
}

func (fs *fakeStore) UpdateTournamentStatus(_ context.Context, id uuid.UUID, status models.TournamentStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	t := fs.tournaments[id]
	t.Status = status
	fs.tournaments[id] = t
	return nil
}

func (fs *fakeStore) SetTournamentWinner(_ context.Context, id, winnerID uuid.UUID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	t := fs.tournaments[id]
	t.Status = models.TournamentCompleted
	t.WinnerID = &winnerID
	fs.tournaments[id] = t
	return nil
}

func (fs *fakeStore) InsertTournamentParticipant(_ context.Context, p *models.TournamentParticipant) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.participants[p.TournamentID] = append(fs.participants[p.TournamentID], *p)
	return nil
}

func (fs *fakeStore) MarkParticipantEliminated(_ context.Context, tournamentID, userID uuid.UUID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list := fs.participants[tournamentID]
	for i := range list {
		if list[i].UserID == userID {
			list[i].Eliminated = true
		}
	}
	return nil
}

func (fs *fakeStore) InsertMatches(_ context.Context, matches []models.TournamentMatch) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, m := range matches {
		fs.matches[m.ID] = m
	}
	return nil
}

func (fs *fakeStore) CompleteMatch(_ context.Context, matchID, winnerID uuid.UUID, at time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	m := fs.matches[matchID]
	m.Status = models.MatchCompleted
	m.WinnerID = &winnerID
	m.CompletedAt = &at
	fs.matches[matchID] = m
	fs.completions++
	return nil
}

func (fs *fakeStore) ListTournaments(_ context.Context, statuses []models.TournamentStatus) ([]models.Tournament, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []models.Tournament
	for _, t := range fs.tournaments {
		for _, st := range statuses {
			if t.Status == st {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (fs *fakeStore) TournamentExistsAt(_ context.Context, name string, startsAt time.Time) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, t := range fs.tournaments {
		if t.Name == name && t.StartsAt.Equal(startsAt) {
			return true, nil
		}
	}
	return false, nil
}

func setupService(t *testing.T) (*Service, *fakeStore, *mockPublisher) {
	t.Helper()
	fs := newFakeStore()
	mp := &mockPublisher{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s := NewService(fs, mp, logger)
	s.Rand = rand.New(rand.NewSource(7))
	return s, fs, mp
}

func createTestTournament(t *testing.T, s *Service, maxParticipants int) *models.Tournament {
	t.Helper()
	tour, err := s.CreateAutomaticTournament(context.Background(), CreateTournamentInput{
		Name:            "Test Cup",
		MaxParticipants: maxParticipants,
		PrizePool:       100,
		StartsAt:        time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return tour
}

func registerPlayers(t *testing.T, s *Service, tournamentID uuid.UUID, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, s.JoinTournament(context.Background(), tournamentID, ids[i], "player"))
	}
	return ids
}

func TestCreateTournamentValidation(t *testing.T) {
	s, _, _ := setupService(t)
	ctx := context.Background()

	_, err := s.CreateAutomaticTournament(ctx, CreateTournamentInput{Name: " ", MaxParticipants: 8})
	assert.ErrorIs(t, err, ErrInvalidTournamentConfig)

	_, err = s.CreateAutomaticTournament(ctx, CreateTournamentInput{Name: "x", MaxParticipants: 1})
	assert.ErrorIs(t, err, ErrInvalidTournamentConfig)
}

func TestJoinTournamentOrderedValidation(t *testing.T) {
	s, _, _ := setupService(t)
	ctx := context.Background()

	err := s.JoinTournament(ctx, uuid.New(), uuid.New(), "x")
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	tour := createTestTournament(t, s, 2)
	players := registerPlayers(t, s, tour.ID, 2)

	// Full beats duplicate-membership for a third player; a registered
	// player is rejected as duplicate only while below the cap.
	err = s.JoinTournament(ctx, tour.ID, uuid.New(), "late")
	assert.ErrorIs(t, err, ErrTournamentFull)

	require.NoError(t, s.StartTournament(ctx, tour.ID))
	err = s.JoinTournament(ctx, tour.ID, players[0], "again")
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestJoinTournamentDuplicate(t *testing.T) {
	s, _, _ := setupService(t)
	tour := createTestTournament(t, s, 8)
	players := registerPlayers(t, s, tour.ID, 2)

	err := s.JoinTournament(context.Background(), tour.ID, players[1], "again")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestStartTournamentChecks(t *testing.T) {
	s, _, _ := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.StartTournament(ctx, uuid.New()), ErrTournamentNotFound)

	tour := createTestTournament(t, s, 8)
	registerPlayers(t, s, tour.ID, 1)
	assert.ErrorIs(t, s.StartTournament(ctx, tour.ID), ErrNotEnoughParticipants)

	registerPlayers(t, s, tour.ID, 1)
	require.NoError(t, s.StartTournament(ctx, tour.ID))
	assert.ErrorIs(t, s.StartTournament(ctx, tour.ID), ErrAlreadyStarted)
}

func TestTwoPlayerInstantFinalization(t *testing.T) {
	s, fs, mp := setupService(t)
	ctx := context.Background()

	tour := createTestTournament(t, s, 2)
	registerPlayers(t, s, tour.ID, 2)
	require.NoError(t, s.StartTournament(ctx, tour.ID))

	matches, err := s.Bracket(tour.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	winner := matches[0].Player1ID
	require.NoError(t, s.ReportMatchResult(ctx, matches[0].ID, winner))

	ev := mp.lastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, "tournament-completed", ev["type"])
	assert.Equal(t, winner.String(), ev["winnerId"])

	fs.mu.Lock()
	persisted := fs.tournaments[tour.ID]
	fs.mu.Unlock()
	assert.Equal(t, models.TournamentCompleted, persisted.Status)
	require.NotNil(t, persisted.WinnerID)
	assert.Equal(t, winner, *persisted.WinnerID)
}

func TestFiveParticipantBracketShape(t *testing.T) {
	s, _, mp := setupService(t)
	ctx := context.Background()

	tour := createTestTournament(t, s, 8)
	registerPlayers(t, s, tour.ID, 5)
	require.NoError(t, s.StartTournament(ctx, tour.ID))

	// Round 1: two real matches, one bye, no empty pairings.
	matches, err := s.Bracket(tour.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, models.MatchPending, m.Status)
		assert.NotEqual(t, uuid.Nil, m.Player1ID)
		assert.NotEqual(t, uuid.Nil, m.Player2ID)
	}

	st, ok := s.getState(tour.ID)
	require.True(t, ok)
	st.mu.Lock()
	bye1 := st.byes[1]
	st.mu.Unlock()
	require.NotNil(t, bye1, "5 entrants leave one bye")

	// Complete round 1; player 1 of each match wins.
	require.NoError(t, s.ReportMatchResult(ctx, matches[0].ID, matches[0].Player1ID))
	require.NoError(t, s.ReportMatchResult(ctx, matches[1].ID, matches[1].Player1ID))

	// Round 2: winners + bye = 3 entrants, so one match and a new bye.
	matches, err = s.Bracket(tour.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	r2 := matches[2]
	assert.Equal(t, 2, r2.Round)
	assert.True(t, r2.ScheduledAt.After(time.Now().Add(roundDelay-time.Minute)),
		"next round is scheduled 30 minutes out")

	st.mu.Lock()
	bye2 := st.byes[2]
	st.mu.Unlock()
	require.NotNil(t, bye2)
	assert.Equal(t, *bye1, *bye2, "the round 1 bye pairs last and carries again")

	// Round 2 complete: 2 survivors, the final is created.
	require.NoError(t, s.ReportMatchResult(ctx, r2.ID, r2.Player1ID))

	matches, err = s.Bracket(tour.ID)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	final := matches[3]
	assert.Equal(t, 3, final.Round)
	assert.Equal(t, *bye2, final.Player2ID, "carried bye finally plays in the final")

	// Finish it.
	require.NoError(t, s.ReportMatchResult(ctx, final.ID, final.Player2ID))
	ev := mp.lastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, "tournament-completed", ev["type"])

	types := mp.eventTypes()
	assert.Contains(t, types, "tournament-round-advanced")
}

func TestReportMatchResultIdempotent(t *testing.T) {
	s, fs, _ := setupService(t)
	ctx := context.Background()

	tour := createTestTournament(t, s, 8)
	registerPlayers(t, s, tour.ID, 4)
	require.NoError(t, s.StartTournament(ctx, tour.ID))

	matches, err := s.Bracket(tour.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	m := matches[0]
	require.NoError(t, s.ReportMatchResult(ctx, m.ID, m.Player1ID))

	fs.mu.Lock()
	before := fs.completions
	fs.mu.Unlock()

	// Reporting again, even with the other player, changes nothing.
	err = s.ReportMatchResult(ctx, m.ID, m.Player2ID)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)

	fs.mu.Lock()
	assert.Equal(t, before, fs.completions, "no second write")
	stored := fs.matches[m.ID]
	fs.mu.Unlock()
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, m.Player1ID, *stored.WinnerID)
}

func TestReportMatchResultValidation(t *testing.T) {
	s, _, _ := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.ReportMatchResult(ctx, uuid.New(), uuid.New()), ErrMatchNotFound)

	tour := createTestTournament(t, s, 8)
	registerPlayers(t, s, tour.ID, 2)
	require.NoError(t, s.StartTournament(ctx, tour.ID))

	matches, err := s.Bracket(tour.ID)
	require.NoError(t, err)
	err = s.ReportMatchResult(ctx, matches[0].ID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidWinner)
}

func TestLoserMarkedEliminated(t *testing.T) {
	s, fs, _ := setupService(t)
	ctx := context.Background()

	tour := createTestTournament(t, s, 8)
	registerPlayers(t, s, tour.ID, 2)
	require.NoError(t, s.StartTournament(ctx, tour.ID))

	matches, err := s.Bracket(tour.ID)
	require.NoError(t, err)
	m := matches[0]
	require.NoError(t, s.ReportMatchResult(ctx, m.ID, m.Player2ID))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, p := range fs.participants[tour.ID] {
		if p.UserID == m.Player1ID {
			assert.True(t, p.Eliminated)
		}
		if p.UserID == m.Player2ID {
			assert.False(t, p.Eliminated)
		}
	}
}

func TestActiveTournaments(t *testing.T) {
	s, _, _ := setupService(t)
	ctx := context.Background()

	open := createTestTournament(t, s, 8)
	running := createTestTournament(t, s, 8)
	registerPlayers(t, s, running.ID, 2)
	require.NoError(t, s.StartTournament(ctx, running.ID))

	done := createTestTournament(t, s, 8)
	registerPlayers(t, s, done.ID, 2)
	require.NoError(t, s.StartTournament(ctx, done.ID))
	matches, err := s.Bracket(done.ID)
	require.NoError(t, err)
	require.NoError(t, s.ReportMatchResult(ctx, matches[0].ID, matches[0].Player1ID))

	active, err := s.ActiveTournaments(ctx)
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool)
	for _, t2 := range active {
		ids[t2.ID] = true
	}
	assert.True(t, ids[open.ID])
	assert.True(t, ids[running.ID])
	assert.False(t, ids[done.ID], "completed tournaments are not active")
}
