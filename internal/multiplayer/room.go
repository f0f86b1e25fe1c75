// internal/multiplayer/room.go
package multiplayer

import (
	"sync"

	"github.com/google/uuid"
	"github.com/opopina/logiverse/internal/models"
)

// Room is the live, authoritative state of one multiplayer room. All
// mutations run under Mu, including the check-then-act completion
// detection on the active session.
type Room struct {
	State   models.Room
	Session *Session

	// Mutex to protect concurrent access to room state and the active session.
	Mu sync.Mutex
}

// Session pairs the persisted session state with the challenge being
// played. The challenge's solution never leaves this struct.
type Session struct {
	State     models.GameSession
	Challenge *models.Challenge
}

// participant returns a pointer into the room's participant slice, or nil.
// Caller must hold Mu.
func (r *Room) participant(userID uuid.UUID) *models.RoomParticipant {
	for i := range r.State.Participants {
		if r.State.Participants[i].UserID == userID {
			return &r.State.Participants[i]
		}
	}
	return nil
}

// removeParticipant drops a member and keeps CurrentPlayers in sync.
// Caller must hold Mu. Returns false if the user was not a member.
func (r *Room) removeParticipant(userID uuid.UUID) bool {
	for i := range r.State.Participants {
		if r.State.Participants[i].UserID == userID {
			r.State.Participants = append(r.State.Participants[:i], r.State.Participants[i+1:]...)
			r.State.CurrentPlayers = len(r.State.Participants)
			return true
		}
	}
	return false
}

// sessionParticipant returns a pointer into the active session's
// participant slice, or nil. Caller must hold Mu.
func (r *Room) sessionParticipant(userID uuid.UUID) *models.SessionParticipant {
	if r.Session == nil {
		return nil
	}
	for i := range r.Session.State.Participants {
		if r.Session.State.Participants[i].UserID == userID {
			return &r.Session.State.Participants[i]
		}
	}
	return nil
}

// Snapshot returns a copy of the room state safe to hand to encoders.
// The invite code is stripped; it only travels to the room owner.
func (r *Room) Snapshot() models.Room {
	snap := r.State
	snap.InviteCode = ""
	snap.Participants = make([]models.RoomParticipant, len(r.State.Participants))
	copy(snap.Participants, r.State.Participants)
	return snap
}
