// internal/models/stats.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStats is the per-user aggregate updated after every completed
// multiplayer session. WinStreak resets to zero on any non-winning game.
type PlayerStats struct {
	UserID       uuid.UUID `json:"userId"`
	GamesPlayed  int       `json:"gamesPlayed"`
	GamesWon     int       `json:"gamesWon"`
	TotalScore   int       `json:"totalScore"`
	BestScore    int       `json:"bestScore"`
	WinStreak    int       `json:"winStreak"`
	MaxWinStreak int       `json:"maxWinStreak"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	TotalScore  int       `json:"totalScore"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
}
