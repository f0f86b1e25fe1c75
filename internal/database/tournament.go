package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opopina/logiverse/internal/models"
)

// InsertTournament creates a tournament row.
func InsertTournament(ctx context.Context, t *models.Tournament) error {
	q := `
	INSERT INTO tournaments (
		id, name, description, format, status,
		max_participants, prize_pool, starts_at,
		registration_opens, registration_closes, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			t.ID, t.Name, t.Description, t.Format, t.Status,
			t.MaxParticipants, t.PrizePool, t.StartsAt,
			t.RegistrationOpens, t.RegistrationCloses, t.CreatedAt,
		)
		return err
	})
}

// GetTournament fetches a tournament by ID.
func GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	var t models.Tournament
	q := `
	SELECT id, name, description, format, status,
	       max_participants, prize_pool, starts_at,
	       registration_opens, registration_closes, winner_id, created_at
	FROM tournaments
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.Format, &t.Status,
		&t.MaxParticipants, &t.PrizePool, &t.StartsAt,
		&t.RegistrationOpens, &t.RegistrationCloses, &t.WinnerID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTournaments returns tournaments in the given statuses, soonest first.
func ListTournaments(ctx context.Context, statuses []models.TournamentStatus) ([]models.Tournament, error) {
	q := `
	SELECT id, name, description, format, status,
	       max_participants, prize_pool, starts_at,
	       registration_opens, registration_closes, winner_id, created_at
	FROM tournaments
	WHERE status = ANY($1)
	ORDER BY starts_at
	`
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	rows, err := DB.Query(ctx, q, ss)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Tournament
	for rows.Next() {
		var t models.Tournament
		err := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.Format, &t.Status,
			&t.MaxParticipants, &t.PrizePool, &t.StartsAt,
			&t.RegistrationOpens, &t.RegistrationCloses, &t.WinnerID, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TournamentExistsAt reports whether a tournament with this name already
// starts at the given time. The weekend scheduler uses it to stay
// idempotent across restarts.
func TournamentExistsAt(ctx context.Context, name string, startsAt time.Time) (bool, error) {
	var tmp int
	q := `SELECT 1 FROM tournaments WHERE name = $1 AND starts_at = $2 LIMIT 1`
	err := DB.QueryRow(ctx, q, name, startsAt).Scan(&tmp)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateTournamentStatus sets the lifecycle status.
func UpdateTournamentStatus(ctx context.Context, id uuid.UUID, status models.TournamentStatus) error {
	q := `UPDATE tournaments SET status = $1 WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, status, id)
		return err
	})
}

// SetTournamentWinner records the champion and completes the tournament.
func SetTournamentWinner(ctx context.Context, id, winnerID uuid.UUID) error {
	q := `UPDATE tournaments SET status = 'COMPLETED', winner_id = $1 WHERE id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, winnerID, id)
		return err
	})
}

// InsertTournamentParticipant registers one entrant.
func InsertTournamentParticipant(ctx context.Context, p *models.TournamentParticipant) error {
	q := `
	INSERT INTO tournament_participants (tournament_id, user_id, seed, eliminated, registered_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, p.TournamentID, p.UserID, p.Seed, p.Eliminated, p.RegisteredAt)
		return err
	})
}

// GetTournamentParticipants returns entrants in registration order.
func GetTournamentParticipants(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentParticipant, error) {
	q := `
	SELECT tp.tournament_id, tp.user_id, u.username, tp.seed, tp.eliminated, tp.registered_at
	FROM tournament_participants tp
	JOIN users u ON u.id = tp.user_id
	WHERE tp.tournament_id = $1
	ORDER BY tp.registered_at
	`
	rows, err := DB.Query(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TournamentParticipant
	for rows.Next() {
		var p models.TournamentParticipant
		if err := rows.Scan(&p.TournamentID, &p.UserID, &p.Username, &p.Seed, &p.Eliminated, &p.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkParticipantEliminated flags a loser after a completed match.
func MarkParticipantEliminated(ctx context.Context, tournamentID, userID uuid.UUID) error {
	q := `UPDATE tournament_participants SET eliminated = true WHERE tournament_id = $1 AND user_id = $2`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, tournamentID, userID)
		return err
	})
}

// InsertMatches stores a whole round of bracket matches in one transaction.
func InsertMatches(ctx context.Context, matches []models.TournamentMatch) error {
	q := `
	INSERT INTO tournament_matches (
		id, tournament_id, round, position,
		player1_id, player2_id, status, scheduled_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, m := range matches {
			_, err := tx.Exec(ctx, q,
				m.ID, m.TournamentID, m.Round, m.Position,
				m.Player1ID, m.Player2ID, m.Status, m.ScheduledAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTournamentMatches returns all matches ordered by round then position.
func GetTournamentMatches(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentMatch, error) {
	q := `
	SELECT id, tournament_id, round, position,
	       player1_id, player2_id, winner_id, status, scheduled_at, completed_at
	FROM tournament_matches
	WHERE tournament_id = $1
	ORDER BY round, position
	`
	rows, err := DB.Query(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TournamentMatch
	for rows.Next() {
		var m models.TournamentMatch
		err := rows.Scan(
			&m.ID, &m.TournamentID, &m.Round, &m.Position,
			&m.Player1ID, &m.Player2ID, &m.WinnerID, &m.Status, &m.ScheduledAt, &m.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CompleteMatch records a match result.
func CompleteMatch(ctx context.Context, matchID, winnerID uuid.UUID, at time.Time) error {
	q := `
	UPDATE tournament_matches
	SET winner_id = $1, status = 'COMPLETED', completed_at = $2
	WHERE id = $3
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, winnerID, at, matchID)
		return err
	})
}
