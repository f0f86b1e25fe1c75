// internal/models/session.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the lifecycle of a match session.
type SessionStatus string

const (
	SessionWaiting   SessionStatus = "WAITING"
	SessionActive    SessionStatus = "ACTIVE"
	SessionPaused    SessionStatus = "PAUSED"
	SessionCompleted SessionStatus = "COMPLETED"
)

// SessionParticipant is one player's live progress inside a match session.
// IsCorrect is nil until the player has answered at least once.
type SessionParticipant struct {
	UserID     uuid.UUID `json:"userId"`
	Username   string    `json:"username"`
	Score      int       `json:"score"`
	Attempts   int       `json:"attempts"`
	HintsUsed  int       `json:"hintsUsed"`
	TimeSpent  int       `json:"timeSpent"`
	LastAnswer string    `json:"-"`
	IsCorrect  *bool     `json:"isCorrect"`
	Ranking    int       `json:"ranking,omitempty"`
	EndTime    *time.Time `json:"-"`
}

// Correct reports whether the player has answered correctly.
func (p *SessionParticipant) Correct() bool {
	return p.IsCorrect != nil && *p.IsCorrect
}

// GameSession is one shared challenge being played by a room. The
// participant set is fixed at start. CurrentProblem holds the public
// challenge payload sent to clients; it never contains the solution.
type GameSession struct {
	ID             uuid.UUID            `json:"id"`
	RoomID         uuid.UUID            `json:"roomId"`
	ChallengeID    string               `json:"challengeId"`
	WorldID        string               `json:"worldId"`
	Status         SessionStatus        `json:"status"`
	CurrentProblem json.RawMessage      `json:"currentProblem,omitempty"`
	Participants   []SessionParticipant `json:"participants"`
	StartedAt      time.Time            `json:"startedAt"`
	EndedAt        *time.Time           `json:"endedAt,omitempty"`
}

// SessionResult is one row of the final ranking published when a session
// completes. Rank is 1-based.
type SessionResult struct {
	Rank      int       `json:"rank"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Score     int       `json:"score"`
	TimeSpent int       `json:"timeSpent"`
	Attempts  int       `json:"attempts"`
	IsCorrect bool      `json:"isCorrect"`
}
