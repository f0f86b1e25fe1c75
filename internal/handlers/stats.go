// internal/handlers/stats.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/opopina/logiverse/internal/models"
)

// StatsFetcher loads one player's aggregate record. Players with no
// finished games get a zero-valued record, not an error.
type StatsFetcher func(ctx context.Context, userID uuid.UUID) (*models.PlayerStats, error)

// LeaderboardFetcher loads the top players by total score.
type LeaderboardFetcher func(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

const defaultLeaderboardLimit = 20

// StatsHandler serves one player's aggregate stats.
// GET /stats?user_id={uuid}
func StatsHandler(fetch StatsFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}

		stats, err := fetch(r.Context(), userID)
		if err != nil {
			http.Error(w, "failed to load stats", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}

// LeaderboardHandler serves the global ranking.
// GET /leaderboard?limit={n}
func LeaderboardHandler(fetch LeaderboardFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit := defaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		entries, err := fetch(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}
