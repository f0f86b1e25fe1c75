package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/opopina/logiverse/internal/models"
)

// GetChallenge fetches a single challenge by ID.
func GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	q := `
	SELECT id, world_id, title, description, difficulty, is_active, content, solution
	FROM challenges
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, id).Scan(&c.ID, &c.WorldID, &c.Title, &c.Description, &c.Difficulty, &c.IsActive, &c.Content, &c.Solution)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RandomChallenge picks a random active challenge matching the room's
// world and difficulty filters. Empty filters match everything.
func RandomChallenge(ctx context.Context, worldIDs []string, difficulties []int) (*models.Challenge, error) {
	var c models.Challenge
	q := `
	SELECT id, world_id, title, description, difficulty, is_active, content, solution
	FROM challenges
	WHERE is_active = true
	  AND ($1::text[] IS NULL OR cardinality($1::text[]) = 0 OR world_id = ANY($1))
	  AND ($2::int[] IS NULL OR cardinality($2::int[]) = 0 OR difficulty = ANY($2))
	ORDER BY random()
	LIMIT 1
	`
	err := DB.QueryRow(ctx, q, worldIDs, difficulties).Scan(
		&c.ID, &c.WorldID, &c.Title, &c.Description, &c.Difficulty, &c.IsActive, &c.Content, &c.Solution,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// No challenge fits the filters. The caller turns this into its
		// own reason code, so it is not a query failure.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
