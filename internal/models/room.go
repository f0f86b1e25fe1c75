// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomType enumerates the kinds of multiplayer rooms a player can open.
type RoomType string

const (
	RoomTypeCasual      RoomType = "CASUAL"
	RoomTypeRanked      RoomType = "RANKED"
	RoomTypeTournament  RoomType = "TOURNAMENT"
	RoomTypePrivate     RoomType = "PRIVATE"
	RoomTypeEducational RoomType = "EDUCATIONAL"
	RoomTypeSpeed       RoomType = "SPEED"
	RoomTypeCooperative RoomType = "COOPERATIVE"
)

// RoomStatus tracks where a room is in its lifecycle.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "WAITING"
	RoomStatusFull     RoomStatus = "FULL"
	RoomStatusPlaying  RoomStatus = "PLAYING"
	RoomStatusFinished RoomStatus = "FINISHED"
)

// ParticipantRole is the role a user holds inside a room.
type ParticipantRole string

const (
	RolePlayer    ParticipantRole = "PLAYER"
	RoleSpectator ParticipantRole = "SPECTATOR"
	RoleModerator ParticipantRole = "MODERATOR"
)

// ParticipantStatus tracks a member's presence inside a room.
type ParticipantStatus string

const (
	ParticipantActive       ParticipantStatus = "ACTIVE"
	ParticipantInactive     ParticipantStatus = "INACTIVE"
	ParticipantDisconnected ParticipantStatus = "DISCONNECTED"
)

// RoomSettings holds the gameplay configuration chosen at room creation.
type RoomSettings struct {
	WorldIDs          []string `json:"worldIds"`
	Difficulties      []int    `json:"difficulty"`
	TimeLimit         int      `json:"timeLimit,omitempty"`
	MaxHints          int      `json:"maxHints,omitempty"`
	EnableAIModerator bool     `json:"enableAIModerator"`
	AutoMatch         bool     `json:"autoMatch"`
	AllowSpectators   bool     `json:"allowSpectators"`
}

// RoomParticipant is one user's membership record inside a room.
type RoomParticipant struct {
	UserID   uuid.UUID         `json:"userId"`
	Username string            `json:"username"`
	Role     ParticipantRole   `json:"role"`
	Status   ParticipantStatus `json:"status"`
	Score    int               `json:"score"`
	JoinedAt time.Time         `json:"joinedAt"`
}

// Room represents a row in the rooms table plus its current membership.
// Participants are ordered by join time; CurrentPlayers must always equal
// len(Participants).
type Room struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Type           RoomType          `json:"type"`
	MaxPlayers     int               `json:"maxPlayers"`
	CurrentPlayers int               `json:"currentPlayers"`
	IsPrivate      bool              `json:"isPrivate"`
	InviteCode     string            `json:"-"`
	Status         RoomStatus        `json:"status"`
	CreatedBy      uuid.UUID         `json:"createdBy"`
	Settings       RoomSettings      `json:"settings"`
	Participants   []RoomParticipant `json:"participants"`
	CreatedAt      time.Time         `json:"createdAt"`
}
