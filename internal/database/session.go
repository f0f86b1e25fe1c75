package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opopina/logiverse/internal/models"
)

// InsertSession creates a session row plus one participant row per player.
func InsertSession(ctx context.Context, s *models.GameSession) error {
	q := `
	INSERT INTO game_sessions (id, room_id, challenge_id, world_id, status, started_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, s.ID, s.RoomID, s.ChallengeID, s.WorldID, s.Status, s.StartedAt)
		if err != nil {
			return err
		}
		pq := `
		INSERT INTO session_participants
			(session_id, user_id, score, attempts, hints_used, time_spent, is_correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		for _, p := range s.Participants {
			_, err := tx.Exec(ctx, pq, s.ID, p.UserID, p.Score, p.Attempts, p.HintsUsed, p.TimeSpent, p.IsCorrect)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateSessionParticipant persists one player's progress after an answer
// or hint.
func UpdateSessionParticipant(ctx context.Context, sessionID uuid.UUID, p models.SessionParticipant) error {
	q := `
	UPDATE session_participants
	SET score = $1, attempts = $2, hints_used = $3, time_spent = $4,
	    last_answer = $5, is_correct = $6, ranking = $7
	WHERE session_id = $8 AND user_id = $9
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			p.Score, p.Attempts, p.HintsUsed, p.TimeSpent,
			p.LastAnswer, p.IsCorrect, p.Ranking, sessionID, p.UserID,
		)
		return err
	})
}

// FinishSession marks a session COMPLETED and stamps the end time.
func FinishSession(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus, at time.Time) error {
	q := `UPDATE game_sessions SET status = $1, ended_at = $2 WHERE id = $3`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, status, at, sessionID)
		return err
	})
}
