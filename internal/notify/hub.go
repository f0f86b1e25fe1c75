// internal/notify/hub.go
package notify

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn is a single user's live WebSocket presence. The write pump in the
// handlers package drains OutChan; everything else only calls Write.
type Conn struct {
	UserID   uuid.UUID
	Username string
	Cancel   func()
	OutChan  chan map[string]interface{}
}

// Write pushes a message onto the user's OutChan non-blockingly. Logs if blocked/dropped.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
		// Message sent successfully
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("notify.Conn Write WARNING: OutChan for user %s closed or full. Dropped message type '%s'.", c.UserID, msgType)
	}
}

// WriteError is a convenience to send an error object.
func (c *Conn) WriteError(msg string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// Hub routes events to connected users. Rooms are subscription sets: a
// user's connection is added to a room set when they join the room and
// removed when they leave or disconnect.
type Hub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Conn
	rooms map[uuid.UUID]map[uuid.UUID]*Conn
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[uuid.UUID]*Conn),
		rooms: make(map[uuid.UUID]map[uuid.UUID]*Conn),
	}
}

// Register tracks a new connection. A second connection for the same user
// supersedes the first; the old one is cancelled.
func (h *Hub) Register(conn *Conn) {
	h.mu.Lock()
	old := h.conns[conn.UserID]
	h.conns[conn.UserID] = conn
	for _, members := range h.rooms {
		if _, ok := members[conn.UserID]; ok {
			members[conn.UserID] = conn
		}
	}
	h.mu.Unlock()

	if old != nil && old.Cancel != nil {
		old.Cancel()
	}
}

// Unregister drops a connection and removes it from every room set. It is
// a no-op if a newer connection has already replaced this one.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[conn.UserID]; !ok || cur != conn {
		return
	}
	delete(h.conns, conn.UserID)
	for roomID, members := range h.rooms {
		delete(members, conn.UserID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// IsCurrent reports whether conn is still the user's registered
// connection, i.e. it has not been superseded by a reconnect.
func (h *Hub) IsCurrent(conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.conns[conn.UserID]
	return ok && cur == conn
}

// Subscribe adds a user's connection to a room's broadcast set.
func (h *Hub) Subscribe(roomID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[userID]
	if !ok {
		return
	}
	members := h.rooms[roomID]
	if members == nil {
		members = make(map[uuid.UUID]*Conn)
		h.rooms[roomID] = members
	}
	members[userID] = conn
}

// Unsubscribe removes a user from a room's broadcast set.
func (h *Hub) Unsubscribe(roomID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// PublishToRoom sends an event to every connection subscribed to the room.
func (h *Hub) PublishToRoom(roomID uuid.UUID, msg map[string]interface{}) {
	h.mu.Lock()
	members := h.rooms[roomID]
	targets := make([]*Conn, 0, len(members))
	for _, conn := range members {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		conn.Write(msg)
	}
}

// PublishGlobal sends an event to every connected user.
func (h *Hub) PublishGlobal(msg map[string]interface{}) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		conn.Write(msg)
	}
}

// PublishToUser sends an event to one user if they are connected.
func (h *Hub) PublishToUser(userID uuid.UUID, msg map[string]interface{}) {
	h.mu.Lock()
	conn := h.conns[userID]
	h.mu.Unlock()

	if conn != nil {
		conn.Write(msg)
	}
}
