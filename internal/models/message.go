// internal/models/message.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomMessage is one chat line inside a room. Persona messages have no
// UserID and carry the persona's mood.
type RoomMessage struct {
	ID        uuid.UUID  `json:"id"`
	RoomID    uuid.UUID  `json:"roomId"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Username  string     `json:"username"`
	IsPersona bool       `json:"isPersona"`
	Mood      string     `json:"mood,omitempty"`
	Text      string     `json:"text"`
	SentAt    time.Time  `json:"sentAt"`
}
