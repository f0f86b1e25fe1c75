// internal/models/tournament.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus tracks the lifecycle of a tournament.
type TournamentStatus string

const (
	TournamentRegistrationOpen   TournamentStatus = "REGISTRATION_OPEN"
	TournamentRegistrationClosed TournamentStatus = "REGISTRATION_CLOSED"
	TournamentInProgress         TournamentStatus = "IN_PROGRESS"
	TournamentCompleted          TournamentStatus = "COMPLETED"
	TournamentCancelled          TournamentStatus = "CANCELLED"
)

// TournamentFormat names the bracket format. Only single elimination is
// played today; the column exists so other formats can land later.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "SINGLE_ELIMINATION"
)

// MatchStatus tracks one bracket match.
type MatchStatus string

const (
	MatchPending    MatchStatus = "PENDING"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchCompleted  MatchStatus = "COMPLETED"
)

// Tournament is a scheduled competition with a participant cap and a
// registration window.
type Tournament struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	Format             TournamentFormat `json:"format"`
	Status             TournamentStatus `json:"status"`
	MaxParticipants    int              `json:"maxParticipants"`
	PrizePool          int              `json:"prizePool"`
	StartsAt           time.Time        `json:"startsAt"`
	RegistrationOpens  time.Time        `json:"registrationOpens"`
	RegistrationCloses time.Time        `json:"registrationCloses"`
	WinnerID           *uuid.UUID       `json:"winnerId,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// TournamentParticipant is one registered entrant.
type TournamentParticipant struct {
	TournamentID uuid.UUID `json:"tournamentId"`
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
	Seed         int       `json:"seed"`
	Eliminated   bool      `json:"eliminated"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// TournamentMatch is one pairing in the bracket. Byes never produce a
// match row; a player with no opponent advances directly.
type TournamentMatch struct {
	ID           uuid.UUID   `json:"id"`
	TournamentID uuid.UUID   `json:"tournamentId"`
	Round        int         `json:"round"`
	Position     int         `json:"position"`
	Player1ID    uuid.UUID   `json:"player1Id"`
	Player2ID    uuid.UUID   `json:"player2Id"`
	WinnerID     *uuid.UUID  `json:"winnerId,omitempty"`
	Status       MatchStatus `json:"status"`
	ScheduledAt  time.Time   `json:"scheduledAt"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
}
