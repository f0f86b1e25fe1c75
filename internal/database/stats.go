package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opopina/logiverse/internal/models"
)

// GetPlayerStats returns a user's aggregate, or a zero-valued record when
// the user has never finished a session.
func GetPlayerStats(ctx context.Context, userID uuid.UUID) (*models.PlayerStats, error) {
	var s models.PlayerStats
	q := `
	SELECT user_id, games_played, games_won, total_score, best_score,
	       win_streak, max_win_streak, last_active_at
	FROM player_stats
	WHERE user_id = $1
	`
	err := DB.QueryRow(ctx, q, userID).Scan(
		&s.UserID, &s.GamesPlayed, &s.GamesWon, &s.TotalScore, &s.BestScore,
		&s.WinStreak, &s.MaxWinStreak, &s.LastActiveAt,
	)
	if err == pgx.ErrNoRows {
		return &models.PlayerStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SavePlayerStats upserts the full aggregate row.
func SavePlayerStats(ctx context.Context, s *models.PlayerStats) error {
	q := `
	INSERT INTO player_stats
		(user_id, games_played, games_won, total_score, best_score,
		 win_streak, max_win_streak, last_active_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (user_id) DO UPDATE SET
		games_played = EXCLUDED.games_played,
		games_won = EXCLUDED.games_won,
		total_score = EXCLUDED.total_score,
		best_score = EXCLUDED.best_score,
		win_streak = EXCLUDED.win_streak,
		max_win_streak = EXCLUDED.max_win_streak,
		last_active_at = EXCLUDED.last_active_at
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			s.UserID, s.GamesPlayed, s.GamesWon, s.TotalScore, s.BestScore,
			s.WinStreak, s.MaxWinStreak, s.LastActiveAt,
		)
		return err
	})
}

// GetLeaderboard returns the top players by total score.
func GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := `
	SELECT ps.user_id, u.username, ps.total_score, ps.games_played, ps.games_won
	FROM player_stats ps
	JOIN users u ON u.id = ps.user_id
	ORDER BY ps.total_score DESC, ps.games_won DESC
	LIMIT $1
	`
	rows, err := DB.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	rank := 0
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.TotalScore, &e.GamesPlayed, &e.GamesWon); err != nil {
			return nil, err
		}
		rank++
		e.Rank = rank
		out = append(out, e)
	}
	return out, rows.Err()
}
