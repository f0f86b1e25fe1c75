// internal/database/repo.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opopina/logiverse/internal/models"
)

// Repo adapts the package-level query functions to the store interfaces
// the multiplayer coordinator and tournament service consume. It carries
// no state; every method runs against the shared pool.
type Repo struct{}

func (Repo) InsertRoom(ctx context.Context, room *models.Room) error {
	return InsertRoom(ctx, room)
}

func (Repo) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	return DeleteRoom(ctx, roomID)
}

func (Repo) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	return UpdateRoomStatus(ctx, roomID, status)
}

func (Repo) UpdateRoomOwner(ctx context.Context, roomID, newOwner uuid.UUID) error {
	return UpdateRoomOwner(ctx, roomID, newOwner)
}

func (Repo) InsertRoomParticipant(ctx context.Context, roomID uuid.UUID, p models.RoomParticipant) error {
	return InsertRoomParticipant(ctx, roomID, p)
}

func (Repo) RemoveRoomParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	return RemoveRoomParticipant(ctx, roomID, userID)
}

func (Repo) UpdateParticipantStatus(ctx context.Context, roomID, userID uuid.UUID, status models.ParticipantStatus) error {
	return UpdateParticipantStatus(ctx, roomID, userID, status)
}

func (Repo) InsertSession(ctx context.Context, s *models.GameSession) error {
	return InsertSession(ctx, s)
}

func (Repo) UpdateSessionParticipant(ctx context.Context, sessionID uuid.UUID, p models.SessionParticipant) error {
	return UpdateSessionParticipant(ctx, sessionID, p)
}

func (Repo) FinishSession(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus, at time.Time) error {
	return FinishSession(ctx, sessionID, status, at)
}

func (Repo) RandomChallenge(ctx context.Context, worldIDs []string, difficulties []int) (*models.Challenge, error) {
	return RandomChallenge(ctx, worldIDs, difficulties)
}

func (Repo) GetPlayerStats(ctx context.Context, userID uuid.UUID) (*models.PlayerStats, error) {
	return GetPlayerStats(ctx, userID)
}

func (Repo) SavePlayerStats(ctx context.Context, s *models.PlayerStats) error {
	return SavePlayerStats(ctx, s)
}

func (Repo) InsertRoomMessage(ctx context.Context, m *models.RoomMessage) error {
	return InsertRoomMessage(ctx, m)
}

func (Repo) InsertTournament(ctx context.Context, t *models.Tournament) error {
	return InsertTournament(ctx, t)
}

func (Repo) UpdateTournamentStatus(ctx context.Context, id uuid.UUID, status models.TournamentStatus) error {
	return UpdateTournamentStatus(ctx, id, status)
}

func (Repo) SetTournamentWinner(ctx context.Context, id, winnerID uuid.UUID) error {
	return SetTournamentWinner(ctx, id, winnerID)
}

func (Repo) InsertTournamentParticipant(ctx context.Context, p *models.TournamentParticipant) error {
	return InsertTournamentParticipant(ctx, p)
}

func (Repo) MarkParticipantEliminated(ctx context.Context, tournamentID, userID uuid.UUID) error {
	return MarkParticipantEliminated(ctx, tournamentID, userID)
}

func (Repo) InsertMatches(ctx context.Context, matches []models.TournamentMatch) error {
	return InsertMatches(ctx, matches)
}

func (Repo) CompleteMatch(ctx context.Context, matchID, winnerID uuid.UUID, at time.Time) error {
	return CompleteMatch(ctx, matchID, winnerID, at)
}

func (Repo) ListTournaments(ctx context.Context, statuses []models.TournamentStatus) ([]models.Tournament, error) {
	return ListTournaments(ctx, statuses)
}

func (Repo) TournamentExistsAt(ctx context.Context, name string, startsAt time.Time) (bool, error) {
	return TournamentExistsAt(ctx, name, startsAt)
}
