// internal/multiplayer/coordinator.go
package multiplayer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opopina/logiverse/internal/cache"
	"github.com/opopina/logiverse/internal/models"
	"github.com/opopina/logiverse/internal/persona"
)

// Store is the durable persistence the coordinator writes through. The
// pgx repositories in internal/database implement it; tests supply an
// in-memory fake. Writes happen before the matching memory mutation, so
// a store failure aborts the operation.
type Store interface {
	InsertRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error
	UpdateRoomOwner(ctx context.Context, roomID, newOwner uuid.UUID) error
	InsertRoomParticipant(ctx context.Context, roomID uuid.UUID, p models.RoomParticipant) error
	RemoveRoomParticipant(ctx context.Context, roomID, userID uuid.UUID) error
	UpdateParticipantStatus(ctx context.Context, roomID, userID uuid.UUID, status models.ParticipantStatus) error

	InsertSession(ctx context.Context, s *models.GameSession) error
	UpdateSessionParticipant(ctx context.Context, sessionID uuid.UUID, p models.SessionParticipant) error
	FinishSession(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus, at time.Time) error
	// RandomChallenge returns (nil, nil) when no challenge matches the
	// filters; errors are reserved for query failures.
	RandomChallenge(ctx context.Context, worldIDs []string, difficulties []int) (*models.Challenge, error)

	GetPlayerStats(ctx context.Context, userID uuid.UUID) (*models.PlayerStats, error)
	SavePlayerStats(ctx context.Context, s *models.PlayerStats) error

	InsertRoomMessage(ctx context.Context, m *models.RoomMessage) error
}

// Publisher routes events to connected clients. The websocket hub in
// internal/notify implements it.
type Publisher interface {
	PublishToRoom(roomID uuid.UUID, msg map[string]interface{})
	PublishGlobal(msg map[string]interface{})
	PublishToUser(userID uuid.UUID, msg map[string]interface{})
	Subscribe(roomID, userID uuid.UUID)
	Unsubscribe(roomID, userID uuid.UUID)
}

// Persona generates Loggie commentary. Calls run off the room lock and
// never gate gameplay.
type Persona interface {
	Generate(ctx context.Context, event string, roomContext map[string]interface{}, customPrompt string) persona.Message
}

// JournalFunc pushes one activity record to the journal queue. Best-effort.
type JournalFunc func(ctx context.Context, record cache.ActivityRecord) error

// Coordinator owns the live room and session state and drives every
// multiplayer operation against it.
type Coordinator struct {
	Store   Store
	Hub     Publisher
	Persona Persona
	Rooms   *RoomStore
	Journal JournalFunc
	Log     *logrus.Logger

	// Rand feeds invite code generation. Tests inject a seeded source.
	Rand   *rand.Rand
	randMu sync.Mutex
}

// NewCoordinator wires a coordinator with an empty room store.
func NewCoordinator(store Store, hub Publisher, p Persona, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{
		Store:   store,
		Hub:     hub,
		Persona: p,
		Rooms:   NewRoomStore(),
		Log:     logger,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoomInput is the caller-supplied room configuration.
type CreateRoomInput struct {
	Name       string              `json:"name"`
	Type       models.RoomType     `json:"type"`
	MaxPlayers int                 `json:"maxPlayers"`
	IsPrivate  bool                `json:"isPrivate"`
	Settings   models.RoomSettings `json:"settings"`
}

const (
	minPlayers = 2
	maxPlayers = 8
)

// CreateRoom persists and registers a new room with the creator as its
// first participant. The full room, invite code included, is returned to
// the caller; the global room_created broadcast carries a stripped
// snapshot so other players can discover it.
func (c *Coordinator) CreateRoom(ctx context.Context, creatorID uuid.UUID, username string, input CreateRoomInput) (*models.Room, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidRoomConfig
	}
	if input.MaxPlayers < minPlayers || input.MaxPlayers > maxPlayers {
		return nil, ErrInvalidRoomConfig
	}
	if input.Type == "" {
		input.Type = models.RoomTypeCasual
	}

	// A user occupies at most one room at a time.
	if prev, ok := c.Rooms.RoomOfUser(creatorID); ok {
		if err := c.LeaveRoom(ctx, creatorID, prev); err != nil {
			c.Log.Warnf("auto-leave of room %s before create failed: %v", prev, err)
		}
	}

	now := time.Now()
	room := models.Room{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(input.Name),
		Type:           input.Type,
		MaxPlayers:     input.MaxPlayers,
		CurrentPlayers: 1,
		IsPrivate:      input.IsPrivate,
		Status:         models.RoomStatusWaiting,
		CreatedBy:      creatorID,
		Settings:       input.Settings,
		CreatedAt:      now,
		Participants: []models.RoomParticipant{{
			UserID:   creatorID,
			Username: username,
			Role:     models.RolePlayer,
			Status:   models.ParticipantActive,
			JoinedAt: now,
		}},
	}
	if input.IsPrivate {
		room.InviteCode = c.newInviteCode()
	}

	if err := c.Store.InsertRoom(ctx, &room); err != nil {
		return nil, fmt.Errorf("persist room: %w", err)
	}

	live := &Room{State: room}
	c.Rooms.AddRoom(live)
	c.Rooms.SetRoomOfUser(creatorID, room.ID)
	c.Hub.Subscribe(room.ID, creatorID)

	c.Hub.PublishGlobal(map[string]interface{}{
		"type": "room_created",
		"room": live.Snapshot(),
	})
	c.journal(ctx, room.ID, creatorID, "room_created", map[string]interface{}{
		"name": room.Name, "type": string(room.Type),
	})

	result := room
	return &result, nil
}

// JoinRoom adds a user to a room after the validation chain: the room
// must exist, be WAITING, have capacity, and the invite code must match
// for private rooms. The user's previous room, if any, is left first.
func (c *Coordinator) JoinRoom(ctx context.Context, userID uuid.UUID, username string, roomID uuid.UUID, inviteCode string) (*models.Room, error) {
	room, ok := c.Rooms.GetRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	// Re-joining the room you are already in is a no-op.
	if cur, ok := c.Rooms.RoomOfUser(userID); ok && cur == roomID {
		room.Mu.Lock()
		snap := room.Snapshot()
		room.Mu.Unlock()
		return &snap, nil
	}

	// Validate the target before abandoning the current room, so a failed
	// join leaves the user where they were.
	room.Mu.Lock()
	err := room.checkJoinable(inviteCode)
	room.Mu.Unlock()
	if err != nil {
		return nil, err
	}

	if prev, ok := c.Rooms.RoomOfUser(userID); ok && prev != roomID {
		if err := c.LeaveRoom(ctx, userID, prev); err != nil {
			c.Log.Warnf("auto-leave of room %s failed: %v", prev, err)
		}
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	// Re-check: the room may have filled or started while we were leaving.
	if err := room.checkJoinable(inviteCode); err != nil {
		return nil, err
	}

	p := models.RoomParticipant{
		UserID:   userID,
		Username: username,
		Role:     models.RolePlayer,
		Status:   models.ParticipantActive,
		JoinedAt: time.Now(),
	}
	if err := c.Store.InsertRoomParticipant(ctx, roomID, p); err != nil {
		return nil, fmt.Errorf("persist participant: %w", err)
	}

	room.State.Participants = append(room.State.Participants, p)
	room.State.CurrentPlayers = len(room.State.Participants)
	if room.State.CurrentPlayers >= room.State.MaxPlayers {
		if err := c.Store.UpdateRoomStatus(ctx, roomID, models.RoomStatusFull); err != nil {
			c.Log.Warnf("persist FULL status for room %s failed: %v", roomID, err)
		}
		room.State.Status = models.RoomStatusFull
	}

	c.Rooms.SetRoomOfUser(userID, roomID)
	c.Hub.Subscribe(roomID, userID)

	c.Hub.PublishToRoom(roomID, map[string]interface{}{
		"type":           "player_joined",
		"roomId":         roomID.String(),
		"userId":         userID.String(),
		"username":       username,
		"currentPlayers": room.State.CurrentPlayers,
		"status":         string(room.State.Status),
	})
	c.journal(ctx, roomID, userID, "player_joined", nil)

	if room.State.Settings.EnableAIModerator {
		go c.personaComment(roomID, "player_joined", map[string]interface{}{
			"username": username,
			"roomName": room.State.Name,
		}, "")
	}

	snap := room.Snapshot()
	return &snap, nil
}

// checkJoinable runs the ordered join validation. Caller must hold Mu.
func (r *Room) checkJoinable(inviteCode string) error {
	if r.State.Status != models.RoomStatusWaiting {
		return ErrRoomNotJoinable
	}
	if r.State.CurrentPlayers >= r.State.MaxPlayers {
		return ErrRoomFull
	}
	if r.State.IsPrivate && inviteCode != r.State.InviteCode {
		return ErrInvalidInviteCode
	}
	return nil
}

// LeaveRoom removes a user from a room. It is idempotent: an unknown
// room or a non-member returns nil. The last leaver deletes the room
// without events; otherwise the room hears player_left and, when the
// owner left, room_owner_changed for the earliest remaining joiner.
func (c *Coordinator) LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	room, ok := c.Rooms.GetRoom(roomID)
	if !ok {
		c.Rooms.ClearRoomOfUser(userID, roomID)
		return nil
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.participant(userID) == nil {
		c.Rooms.ClearRoomOfUser(userID, roomID)
		return nil
	}

	if err := c.Store.RemoveRoomParticipant(ctx, roomID, userID); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	wasOwner := room.State.CreatedBy == userID
	room.removeParticipant(userID)
	c.Rooms.ClearRoomOfUser(userID, roomID)
	c.Hub.Unsubscribe(roomID, userID)

	if len(room.State.Participants) == 0 {
		if err := c.Store.DeleteRoom(ctx, roomID); err != nil {
			c.Log.Warnf("delete empty room %s failed: %v", roomID, err)
		}
		if room.Session != nil {
			c.Rooms.ClearSession(room.Session.State.ID)
		}
		c.Rooms.DeleteRoom(roomID)
		c.journal(ctx, roomID, userID, "room_deleted", nil)
		return nil
	}

	if room.State.Status == models.RoomStatusFull {
		if err := c.Store.UpdateRoomStatus(ctx, roomID, models.RoomStatusWaiting); err != nil {
			c.Log.Warnf("persist WAITING status for room %s failed: %v", roomID, err)
		}
		room.State.Status = models.RoomStatusWaiting
	}

	c.Hub.PublishToRoom(roomID, map[string]interface{}{
		"type":           "player_left",
		"roomId":         roomID.String(),
		"userId":         userID.String(),
		"currentPlayers": room.State.CurrentPlayers,
	})

	if wasOwner {
		newOwner := room.State.Participants[0]
		if err := c.Store.UpdateRoomOwner(ctx, roomID, newOwner.UserID); err != nil {
			c.Log.Warnf("persist owner change for room %s failed: %v", roomID, err)
		}
		room.State.CreatedBy = newOwner.UserID
		c.Hub.PublishToRoom(roomID, map[string]interface{}{
			"type":     "room_owner_changed",
			"roomId":   roomID.String(),
			"newOwner": newOwner.UserID.String(),
			"username": newOwner.Username,
		})
	}

	c.journal(ctx, roomID, userID, "player_left", nil)
	return nil
}

// StartGame opens a match session for the room. Only the owner may
// start, at least two players must be present, and an active challenge
// matching the room's world and difficulty filters must exist.
func (c *Coordinator) StartGame(ctx context.Context, roomID, initiatorID uuid.UUID) (*models.GameSession, error) {
	room, ok := c.Rooms.GetRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.State.CreatedBy != initiatorID {
		return nil, ErrNotRoomOwner
	}
	players := 0
	for _, p := range room.State.Participants {
		if p.Role == models.RolePlayer {
			players++
		}
	}
	if players < minPlayers {
		return nil, ErrNotEnoughPlayers
	}

	ch, err := c.Store.RandomChallenge(ctx, room.State.Settings.WorldIDs, room.State.Settings.Difficulties)
	if err != nil {
		return nil, fmt.Errorf("pick challenge: %w", err)
	}
	if ch == nil {
		return nil, ErrNoChallengeAvailable
	}

	now := time.Now()
	sess := models.GameSession{
		ID:             uuid.New(),
		RoomID:         roomID,
		ChallengeID:    ch.ID,
		WorldID:        ch.WorldID,
		Status:         models.SessionActive,
		CurrentProblem: ch.Content,
		StartedAt:      now,
	}
	for _, p := range room.State.Participants {
		if p.Role != models.RolePlayer {
			continue
		}
		sess.Participants = append(sess.Participants, models.SessionParticipant{
			UserID:   p.UserID,
			Username: p.Username,
		})
	}

	if err := c.Store.InsertSession(ctx, &sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := c.Store.UpdateRoomStatus(ctx, roomID, models.RoomStatusPlaying); err != nil {
		c.Log.Warnf("persist PLAYING status for room %s failed: %v", roomID, err)
	}

	room.State.Status = models.RoomStatusPlaying
	room.Session = &Session{State: sess, Challenge: ch}
	c.Rooms.SetSession(sess.ID, roomID)

	c.Hub.PublishToRoom(roomID, map[string]interface{}{
		"type":      "game_started",
		"roomId":    roomID.String(),
		"sessionId": sess.ID.String(),
		"challenge": ch.Public(),
		"startedAt": now.Unix(),
	})
	c.journal(ctx, roomID, initiatorID, "game_started", map[string]interface{}{
		"sessionId":   sess.ID.String(),
		"challengeId": ch.ID,
	})

	if room.State.Settings.EnableAIModerator {
		go c.personaComment(roomID, "game_started", map[string]interface{}{
			"challengeTitle": ch.Title,
			"roomName":       room.State.Name,
		}, "")
	}

	result := sess
	return &result, nil
}

// OpenRooms lists joinable public rooms from memory, oldest first.
func (c *Coordinator) OpenRooms() []models.Room {
	var out []models.Room
	for _, room := range c.Rooms.GetRooms() {
		room.Mu.Lock()
		if room.State.Status == models.RoomStatusWaiting && !room.State.IsPrivate {
			out = append(out, room.Snapshot())
		}
		room.Mu.Unlock()
	}
	sortRoomsByAge(out)
	return out
}

func sortRoomsByAge(rooms []models.Room) {
	for i := 1; i < len(rooms); i++ {
		for j := i; j > 0 && rooms[j].CreatedAt.Before(rooms[j-1].CreatedAt); j-- {
			rooms[j], rooms[j-1] = rooms[j-1], rooms[j]
		}
	}
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (c *Coordinator) newInviteCode() string {
	c.randMu.Lock()
	defer c.randMu.Unlock()
	b := make([]byte, 6)
	for i := range b {
		b[i] = inviteAlphabet[c.Rand.Intn(len(inviteAlphabet))]
	}
	return string(b)
}

// journal pushes an activity record best-effort.
func (c *Coordinator) journal(ctx context.Context, roomID, actorID uuid.UUID, event string, payload map[string]interface{}) {
	if c.Journal == nil {
		return
	}
	rec := cache.ActivityRecord{
		RoomID:       roomID,
		ActorUserID:  actorID,
		EventType:    event,
		EventPayload: payload,
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := c.Journal(ctx, rec); err != nil {
		c.Log.Warnf("journal push for %s failed: %v", event, err)
	}
}

// personaComment asks Loggie for a line and drops it into the room as a
// persisted chat message. Runs in its own goroutine; failures only log.
func (c *Coordinator) personaComment(roomID uuid.UUID, event string, roomCtx map[string]interface{}, prompt string) {
	if c.Persona == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	msg := c.Persona.Generate(ctx, event, roomCtx, prompt)
	if msg.Text == "" {
		return
	}

	m := models.RoomMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		Username:  "Loggie",
		IsPersona: true,
		Mood:      msg.Mood,
		Text:      msg.Text,
		SentAt:    time.Now(),
	}
	if err := c.Store.InsertRoomMessage(ctx, &m); err != nil {
		c.Log.Warnf("persist persona message failed: %v", err)
	}
	c.Hub.PublishToRoom(roomID, map[string]interface{}{
		"type":    "room_message",
		"roomId":  roomID.String(),
		"message": m,
	})
}
