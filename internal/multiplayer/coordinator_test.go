// internal/multiplayer/coordinator_test.go
package multiplayer

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
	"github.com/opopina/logiverse/internal/persona"
)

// mockPublisher collects events instead of sending them over WS.
type mockPublisher struct {
	mu           sync.Mutex
	globalEvents []map[string]interface{}
	roomEvents   map[uuid.UUID][]map[string]interface{}
	userEvents   map[uuid.UUID][]map[string]interface{}
	subs         map[uuid.UUID]map[uuid.UUID]bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{
		roomEvents: make(map[uuid.UUID][]map[string]interface{}),
		userEvents: make(map[uuid.UUID][]map[string]interface{}),
		subs:       make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (mp *mockPublisher) PublishToRoom(roomID uuid.UUID, msg map[string]interface{}) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.roomEvents[roomID] = append(mp.roomEvents[roomID], msg)
}

func (mp *mockPublisher) PublishGlobal(msg map[string]interface{}) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.globalEvents = append(mp.globalEvents, msg)
}

func (mp *mockPublisher) PublishToUser(userID uuid.UUID, msg map[string]interface{}) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.userEvents[userID] = append(mp.userEvents[userID], msg)
}

func (mp *mockPublisher) Subscribe(roomID, userID uuid.UUID) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.subs[roomID] == nil {
		mp.subs[roomID] = make(map[uuid.UUID]bool)
	}
	mp.subs[roomID][userID] = true
}

func (mp *mockPublisher) Unsubscribe(roomID, userID uuid.UUID) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	delete(mp.subs[roomID], userID)
}

func (mp *mockPublisher) lastRoomEvent(roomID uuid.UUID) map[string]interface{} {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	events := mp.roomEvents[roomID]
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func (mp *mockPublisher) roomEventTypes(roomID uuid.UUID) []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	var out []string
	for _, ev := range mp.roomEvents[roomID] {
		t, _ := ev["type"].(string)
		out = append(out, t)
	}
	return out
}

func (mp *mockPublisher) lastGlobalEvent() map[string]interface{} {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.globalEvents) == 0 {
		return nil
	}
	return mp.globalEvents[len(mp.globalEvents)-1]
}

// fakeStore is an in-memory Store that records what was persisted.
type fakeStore struct {
	mu           sync.Mutex
	rooms        map[uuid.UUID]models.Room
	deletedRooms []uuid.UUID
	roomStatus   map[uuid.UUID]models.RoomStatus
	roomOwner    map[uuid.UUID]uuid.UUID
	participants map[uuid.UUID][]models.RoomParticipant
	sessions     map[uuid.UUID]models.GameSession
	sessionParts map[uuid.UUID]map[uuid.UUID]models.SessionParticipant
	finished     map[uuid.UUID]models.SessionStatus
	challenge    *models.Challenge
	stats        map[uuid.UUID]models.PlayerStats
	messages     []models.RoomMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        make(map[uuid.UUID]models.Room),
		roomStatus:   make(map[uuid.UUID]models.RoomStatus),
		roomOwner:    make(map[uuid.UUID]uuid.UUID),
		participants: make(map[uuid.UUID][]models.RoomParticipant),
		sessions:     make(map[uuid.UUID]models.GameSession),
		sessionParts: make(map[uuid.UUID]map[uuid.UUID]models.SessionParticipant),
		finished:     make(map[uuid.UUID]models.SessionStatus),
		stats:        make(map[uuid.UUID]models.PlayerStats),
	}
}

func (fs *fakeStore) InsertRoom(_ context.Context, room *models.Room) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.rooms[room.ID] = *room
	fs.participants[room.ID] = append([]models.RoomParticipant{}, room.Participants...)
	return nil
}

func (fs *fakeStore) DeleteRoom(_ context.Context, roomID uuid.UUID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.rooms, roomID)
	delete(fs.participants, roomID)
	fs.deletedRooms = append(fs.deletedRooms, roomID)
	return nil
}

func (fs *fakeStore) UpdateRoomStatus(_ context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.roomStatus[roomID] = status
	return nil
}

func (fs *fakeStore) UpdateRoomOwner(_ context.Context, roomID, newOwner uuid.UUID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.roomOwner[roomID] = newOwner
	return nil
}

func (fs *fakeStore) InsertRoomParticipant(_ context.Context, roomID uuid.UUID, p models.RoomParticipant) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.participants[roomID] = append(fs.participants[roomID], p)
	return nil
}

func (fs *fakeStore) RemoveRoomParticipant(_ context.Context, roomID, userID uuid.UUID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list := fs.participants[roomID]
	for i := range list {
		if list[i].UserID == userID {
			fs.participants[roomID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (fs *fakeStore) UpdateParticipantStatus(_ context.Context, roomID, userID uuid.UUID, status models.ParticipantStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list := fs.participants[roomID]
	for i := range list {
		if list[i].UserID == userID {
			list[i].Status = status
		}
	}
	return nil
}

func (fs *fakeStore) InsertSession(_ context.Context, s *models.GameSession) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sessions[s.ID] = *s
	parts := make(map[uuid.UUID]models.SessionParticipant)
	for _, p := range s.Participants {
		parts[p.UserID] = p
	}
	fs.sessionParts[s.ID] = parts
	return nil
}

func (fs *fakeStore) UpdateSessionParticipant(_ context.Context, sessionID uuid.UUID, p models.SessionParticipant) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if parts, ok := fs.sessionParts[sessionID]; ok {
		parts[p.UserID] = p
	}
	return nil
}

func (fs *fakeStore) FinishSession(_ context.Context, sessionID uuid.UUID, status models.SessionStatus, _ time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.finished[sessionID] = status
	return nil
}

func (fs *fakeStore) RandomChallenge(_ context.Context, _ []string, _ []int) (*models.Challenge, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.challenge, nil
}

func (fs *fakeStore) GetPlayerStats(_ context.Context, userID uuid.UUID) (*models.PlayerStats, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	s, ok := fs.stats[userID]
	if !ok {
		return &models.PlayerStats{UserID: userID}, nil
	}
	copied := s
	return &copied, nil
}

func (fs *fakeStore) SavePlayerStats(_ context.Context, s *models.PlayerStats) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.stats[s.UserID] = *s
	return nil
}

func (fs *fakeStore) InsertRoomMessage(_ context.Context, m *models.RoomMessage) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.messages = append(fs.messages, *m)
	return nil
}

// stubPersona returns one canned line and records invocations.
type stubPersona struct {
	mu     sync.Mutex
	events []string
}

func (sp *stubPersona) Generate(_ context.Context, event string, _ map[string]interface{}, _ string) persona.Message {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.events = append(sp.events, event)
	return persona.Message{Text: "test line", Mood: "cheerful"}
}

// setupCoordinator builds a coordinator against fakes with a fixed seed.
func setupCoordinator(t *testing.T) (*Coordinator, *fakeStore, *mockPublisher) {
	t.Helper()
	fs := newFakeStore()
	mp := newMockPublisher()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := NewCoordinator(fs, mp, &stubPersona{}, logger)
	c.Rand = rand.New(rand.NewSource(42))
	return c, fs, mp
}

func testChallenge() *models.Challenge {
	return &models.Challenge{
		ID:         "ch-1",
		WorldID:    "villa-verdad",
		Title:      "The Three Doors",
		Difficulty: 2,
		IsActive:   true,
		Content:    []byte(`{"prompt":"which door?"}`),
		Solution:   []byte(`{"correctAnswer":"Door B"}`),
	}
}

func TestCreateRoom(t *testing.T) {
	c, fs, mp := setupCoordinator(t)
	owner := uuid.New()

	room, err := c.CreateRoom(context.Background(), owner, "ada", CreateRoomInput{
		Name:       "logic lounge",
		MaxPlayers: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoomStatusWaiting, room.Status)
	assert.Equal(t, 1, room.CurrentPlayers)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, owner, room.Participants[0].UserID)
	assert.Empty(t, room.InviteCode, "public room should have no invite code")

	fs.mu.Lock()
	_, persisted := fs.rooms[room.ID]
	fs.mu.Unlock()
	assert.True(t, persisted, "room should be persisted")

	ev := mp.lastGlobalEvent()
	require.NotNil(t, ev, "room_created should be broadcast globally")
	assert.Equal(t, "room_created", ev["type"])
}

func TestCreateRoomValidation(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	user := uuid.New()

	_, err := c.CreateRoom(context.Background(), user, "ada", CreateRoomInput{Name: "  ", MaxPlayers: 4})
	assert.ErrorIs(t, err, ErrInvalidRoomConfig)

	_, err = c.CreateRoom(context.Background(), user, "ada", CreateRoomInput{Name: "x", MaxPlayers: 1})
	assert.ErrorIs(t, err, ErrInvalidRoomConfig)

	_, err = c.CreateRoom(context.Background(), user, "ada", CreateRoomInput{Name: "x", MaxPlayers: 9})
	assert.ErrorIs(t, err, ErrInvalidRoomConfig)
}

func TestPrivateRoomInviteCode(t *testing.T) {
	c, _, mp := setupCoordinator(t)
	owner := uuid.New()

	room, err := c.CreateRoom(context.Background(), owner, "ada", CreateRoomInput{
		Name: "secret", MaxPlayers: 4, IsPrivate: true,
	})
	require.NoError(t, err)
	require.Len(t, room.InviteCode, 6)

	// The global broadcast must not leak the code.
	ev := mp.lastGlobalEvent()
	require.NotNil(t, ev)
	snap, ok := ev["room"].(models.Room)
	require.True(t, ok)
	assert.Empty(t, snap.InviteCode)

	// Wrong code rejected, right code accepted.
	joiner := uuid.New()
	_, err = c.JoinRoom(context.Background(), joiner, "bob", room.ID, "WRONG1")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)

	joined, err := c.JoinRoom(context.Background(), joiner, "bob", room.ID, room.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.CurrentPlayers)
}

func TestJoinRoomOrderedValidation(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	_, err := c.JoinRoom(ctx, uuid.New(), "bob", uuid.New(), "")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	owner := uuid.New()
	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "duo", MaxPlayers: 2})
	require.NoError(t, err)

	// Fill the room. The FULL flip makes it non-joinable before the
	// capacity check even runs.
	_, err = c.JoinRoom(ctx, uuid.New(), "bob", room.ID, "")
	require.NoError(t, err)

	_, err = c.JoinRoom(ctx, uuid.New(), "eve", room.ID, "")
	assert.ErrorIs(t, err, ErrRoomNotJoinable)
}

func TestJoinRoomFullFlip(t *testing.T) {
	c, fs, mp := setupCoordinator(t)
	ctx := context.Background()
	owner := uuid.New()

	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "duo", MaxPlayers: 2})
	require.NoError(t, err)

	joined, err := c.JoinRoom(ctx, uuid.New(), "bob", room.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusFull, joined.Status)
	assert.Equal(t, joined.CurrentPlayers, len(joined.Participants))

	fs.mu.Lock()
	status := fs.roomStatus[room.ID]
	fs.mu.Unlock()
	assert.Equal(t, models.RoomStatusFull, status, "FULL flip should be persisted")

	ev := mp.lastRoomEvent(room.ID)
	require.NotNil(t, ev)
	assert.Equal(t, "player_joined", ev["type"])
	assert.Equal(t, "FULL", ev["status"])
}

func TestSingleRoomMembership(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	ownerA := uuid.New()
	roomA, err := c.CreateRoom(ctx, ownerA, "ada", CreateRoomInput{Name: "a", MaxPlayers: 4})
	require.NoError(t, err)
	ownerB := uuid.New()
	roomB, err := c.CreateRoom(ctx, ownerB, "bea", CreateRoomInput{Name: "b", MaxPlayers: 4})
	require.NoError(t, err)

	hopper := uuid.New()
	_, err = c.JoinRoom(ctx, hopper, "hop", roomA.ID, "")
	require.NoError(t, err)

	joined, err := c.JoinRoom(ctx, hopper, "hop", roomB.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, joined.CurrentPlayers)

	liveA, ok := c.Rooms.GetRoom(roomA.ID)
	require.True(t, ok)
	liveA.Mu.Lock()
	defer liveA.Mu.Unlock()
	assert.Nil(t, liveA.participant(hopper), "joining room B should leave room A")
	assert.Equal(t, 1, liveA.State.CurrentPlayers)
}

func TestLeaveRoomIdempotent(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	assert.NoError(t, c.LeaveRoom(ctx, uuid.New(), uuid.New()), "unknown room is a no-op")

	owner := uuid.New()
	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "solo", MaxPlayers: 4})
	require.NoError(t, err)
	assert.NoError(t, c.LeaveRoom(ctx, uuid.New(), room.ID), "non-member is a no-op")
}

func TestLastLeaverDeletesRoom(t *testing.T) {
	c, fs, mp := setupCoordinator(t)
	ctx := context.Background()
	owner := uuid.New()

	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "solo", MaxPlayers: 4})
	require.NoError(t, err)

	require.NoError(t, c.LeaveRoom(ctx, owner, room.ID))

	_, ok := c.Rooms.GetRoom(room.ID)
	assert.False(t, ok, "room should be evicted from memory")

	fs.mu.Lock()
	deleted := fs.deletedRooms
	fs.mu.Unlock()
	assert.Contains(t, deleted, room.ID, "room row should be deleted")

	for _, typ := range mp.roomEventTypes(room.ID) {
		assert.NotEqual(t, "player_left", typ, "deletion should not emit leave events")
	}
}

func TestOwnerTransferOnLeave(t *testing.T) {
	c, fs, mp := setupCoordinator(t)
	ctx := context.Background()
	owner := uuid.New()

	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "trio", MaxPlayers: 4})
	require.NoError(t, err)

	second := uuid.New()
	_, err = c.JoinRoom(ctx, second, "bob", room.ID, "")
	require.NoError(t, err)
	third := uuid.New()
	_, err = c.JoinRoom(ctx, third, "cyd", room.ID, "")
	require.NoError(t, err)

	require.NoError(t, c.LeaveRoom(ctx, owner, room.ID))

	live, ok := c.Rooms.GetRoom(room.ID)
	require.True(t, ok)
	live.Mu.Lock()
	newOwner := live.State.CreatedBy
	live.Mu.Unlock()
	assert.Equal(t, second, newOwner, "earliest remaining joiner becomes owner")

	fs.mu.Lock()
	persistedOwner := fs.roomOwner[room.ID]
	fs.mu.Unlock()
	assert.Equal(t, second, persistedOwner)

	ev := mp.lastRoomEvent(room.ID)
	require.NotNil(t, ev)
	assert.Equal(t, "room_owner_changed", ev["type"])
	assert.Equal(t, second.String(), ev["newOwner"])
}

func TestStartGameChecks(t *testing.T) {
	c, fs, _ := setupCoordinator(t)
	ctx := context.Background()

	_, err := c.StartGame(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)

	owner := uuid.New()
	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "game", MaxPlayers: 4})
	require.NoError(t, err)

	_, err = c.StartGame(ctx, room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotRoomOwner)

	_, err = c.StartGame(ctx, room.ID, owner)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = c.JoinRoom(ctx, uuid.New(), "bob", room.ID, "")
	require.NoError(t, err)

	// No challenge matches the filters yet.
	_, err = c.StartGame(ctx, room.ID, owner)
	assert.ErrorIs(t, err, ErrNoChallengeAvailable)

	fs.mu.Lock()
	fs.challenge = testChallenge()
	fs.mu.Unlock()

	sess, err := c.StartGame(ctx, room.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, sess.Status)
	assert.Len(t, sess.Participants, 2)
}

func TestStartGameBroadcastOmitsSolution(t *testing.T) {
	c, fs, mp := setupCoordinator(t)
	ctx := context.Background()
	owner := uuid.New()

	room, err := c.CreateRoom(ctx, owner, "ada", CreateRoomInput{Name: "game", MaxPlayers: 4})
	require.NoError(t, err)
	_, err = c.JoinRoom(ctx, uuid.New(), "bob", room.ID, "")
	require.NoError(t, err)

	fs.mu.Lock()
	fs.challenge = testChallenge()
	fs.mu.Unlock()

	_, err = c.StartGame(ctx, room.ID, owner)
	require.NoError(t, err)

	live, ok := c.Rooms.GetRoom(room.ID)
	require.True(t, ok)
	live.Mu.Lock()
	status := live.State.Status
	live.Mu.Unlock()
	assert.Equal(t, models.RoomStatusPlaying, status)

	ev := mp.lastRoomEvent(room.ID)
	require.NotNil(t, ev)
	require.Equal(t, "game_started", ev["type"])
	challenge, ok := ev["challenge"].(map[string]interface{})
	require.True(t, ok)
	_, hasSolution := challenge["solution"]
	assert.False(t, hasSolution, "solution must never be broadcast")
	assert.Equal(t, "The Three Doors", challenge["title"])
}
