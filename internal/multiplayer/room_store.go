// internal/multiplayer/room_store.go
package multiplayer

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// RoomStore manages active rooms in memory. It provides thread-safe
// access to add, retrieve, and delete rooms, and tracks which room each
// user currently occupies plus which room owns each active session.
type RoomStore struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]*Room
	byUser   map[uuid.UUID]uuid.UUID // userID -> roomID
	sessions map[uuid.UUID]uuid.UUID // sessionID -> roomID
}

// NewRoomStore initializes and returns an empty RoomStore.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:    make(map[uuid.UUID]*Room),
		byUser:   make(map[uuid.UUID]uuid.UUID),
		sessions: make(map[uuid.UUID]uuid.UUID),
	}
}

// AddRoom adds a new room instance to the store.
func (s *RoomStore) AddRoom(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.State.ID]; exists {
		log.Printf("RoomStore WARNING: Attempted to add room %s which already exists.", room.State.ID)
		return
	}
	s.rooms[room.State.ID] = room
}

// DeleteRoom removes a room instance from the store by its ID.
func (s *RoomStore) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	for sessID, roomID := range s.sessions {
		if roomID == id {
			delete(s.sessions, sessID)
		}
	}
}

// GetRoom retrieves a room by its ID.
func (s *RoomStore) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// GetRooms returns a copy of the map containing all active rooms.
func (s *RoomStore) GetRooms() map[uuid.UUID]*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomsCopy := make(map[uuid.UUID]*Room, len(s.rooms))
	for k, v := range s.rooms {
		roomsCopy[k] = v
	}
	return roomsCopy
}

// RoomOfUser returns the room the user currently occupies, if any.
func (s *RoomStore) RoomOfUser(userID uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[userID]
	return id, ok
}

// SetRoomOfUser records the user -> room mapping.
func (s *RoomStore) SetRoomOfUser(userID, roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = roomID
}

// ClearRoomOfUser releases the mapping, but only if the user is still
// recorded in the given room. A join to a new room must not be undone by
// a late leave of the old one.
func (s *RoomStore) ClearRoomOfUser(userID, roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byUser[userID] == roomID {
		delete(s.byUser, userID)
	}
}

// RoomOfSession returns the room that owns an active session.
func (s *RoomStore) RoomOfSession(sessionID uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	roomID, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	r, ok := s.rooms[roomID]
	s.mu.Unlock()
	return r, ok
}

// SetSession records the session -> room mapping.
func (s *RoomStore) SetSession(sessionID, roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = roomID
}

// ClearSession releases the mapping once a session ends.
func (s *RoomStore) ClearSession(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
