package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opopina/logiverse/internal/models"
)

// InsertRoom creates a new room row plus the owner's participant row.
func InsertRoom(ctx context.Context, room *models.Room) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return err
	}
	q := `
	INSERT INTO rooms (
		id, name, type, max_players, current_players,
		is_private, invite_code, status, created_by, settings, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			room.ID, room.Name, room.Type, room.MaxPlayers, room.CurrentPlayers,
			room.IsPrivate, room.InviteCode, room.Status, room.CreatedBy,
			settings, room.CreatedAt,
		)
		if err != nil {
			return err
		}
		for _, p := range room.Participants {
			if err := insertParticipantTx(ctx, tx, room.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertParticipantTx(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, p models.RoomParticipant) error {
	q := `
	INSERT INTO room_participants (room_id, user_id, role, status, score, joined_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, q, roomID, p.UserID, p.Role, p.Status, p.Score, p.JoinedAt)
	return err
}

// InsertRoomParticipant adds a member row and bumps current_players.
func InsertRoomParticipant(ctx context.Context, roomID uuid.UUID, p models.RoomParticipant) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := insertParticipantTx(ctx, tx, roomID, p); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE rooms SET current_players = current_players + 1 WHERE id = $1`, roomID)
		return err
	})
}

// RemoveRoomParticipant deletes a member row and decrements current_players.
func RemoveRoomParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2`, roomID, userID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE rooms SET current_players = GREATEST(current_players - 1, 0) WHERE id = $1`, roomID)
		return err
	})
}

// UpdateRoomStatus sets the room's lifecycle status.
func UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	q := `UPDATE rooms SET status = $1 WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, status, roomID)
		return err
	})
}

// UpdateRoomOwner reassigns the room after the owner leaves.
func UpdateRoomOwner(ctx context.Context, roomID, newOwner uuid.UUID) error {
	q := `UPDATE rooms SET created_by = $1 WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, newOwner, roomID)
		return err
	})
}

// UpdateParticipantStatus marks a member active, inactive, or disconnected.
func UpdateParticipantStatus(ctx context.Context, roomID, userID uuid.UUID, status models.ParticipantStatus) error {
	q := `UPDATE room_participants SET status = $1 WHERE room_id = $2 AND user_id = $3`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, status, roomID, userID)
		return err
	})
}

// DeleteRoom removes a room row and its participants.
func DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM room_participants WHERE room_id = $1`, roomID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
		return err
	})
}

// GetRoom fetches a room by ID, participants included.
func GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var r models.Room
	var settings []byte
	q := `
	SELECT id, name, type, max_players, current_players,
	       is_private, invite_code, status, created_by, settings, created_at
	FROM rooms
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, roomID).Scan(
		&r.ID, &r.Name, &r.Type, &r.MaxPlayers, &r.CurrentPlayers,
		&r.IsPrivate, &r.InviteCode, &r.Status, &r.CreatedBy, &settings, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &r.Settings); err != nil {
		return nil, err
	}

	pq := `
	SELECT rp.user_id, u.username, rp.role, rp.status, rp.score, rp.joined_at
	FROM room_participants rp
	JOIN users u ON u.id = rp.user_id
	WHERE rp.room_id = $1
	ORDER BY rp.joined_at
	`
	rows, err := DB.Query(ctx, pq, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.RoomParticipant
		if err := rows.Scan(&p.UserID, &p.Username, &p.Role, &p.Status, &p.Score, &p.JoinedAt); err != nil {
			return nil, err
		}
		r.Participants = append(r.Participants, p)
	}
	return &r, rows.Err()
}

// GetOpenRooms lists rooms joinable from the public browser, oldest first.
func GetOpenRooms(ctx context.Context) ([]models.Room, error) {
	q := `
	SELECT id, name, type, max_players, current_players,
	       is_private, invite_code, status, created_by, settings, created_at
	FROM rooms
	WHERE status = 'WAITING' AND is_private = false
	ORDER BY created_at
	`
	rows, err := DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Room
	for rows.Next() {
		var r models.Room
		var settings []byte
		err := rows.Scan(
			&r.ID, &r.Name, &r.Type, &r.MaxPlayers, &r.CurrentPlayers,
			&r.IsPrivate, &r.InviteCode, &r.Status, &r.CreatedBy, &settings, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(settings, &r.Settings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRoomMessage stores one chat line.
func InsertRoomMessage(ctx context.Context, m *models.RoomMessage) error {
	q := `
	INSERT INTO room_messages (id, room_id, user_id, username, is_persona, mood, text, sent_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, m.ID, m.RoomID, m.UserID, m.Username, m.IsPersona, m.Mood, m.Text, m.SentAt)
		return err
	})
}

// GetRoomMessages returns the most recent chat lines for a room, newest last.
func GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.RoomMessage, error) {
	q := `
	SELECT id, room_id, user_id, username, is_persona, mood, text, sent_at
	FROM (
		SELECT id, room_id, user_id, username, is_persona, mood, text, sent_at
		FROM room_messages
		WHERE room_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	) recent
	ORDER BY sent_at
	`
	rows, err := DB.Query(ctx, q, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoomMessage
	for rows.Next() {
		var m models.RoomMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.IsPersona, &m.Mood, &m.Text, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
