// internal/handlers/tournaments.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/opopina/logiverse/internal/auth"
	"github.com/opopina/logiverse/internal/models"
	"github.com/opopina/logiverse/internal/tournament"
)

// UserFetcher loads a user record, used to resolve the display name of a
// registrant. Injected so tests can run without a database.
type UserFetcher func(ctx context.Context, id uuid.UUID) (*models.User, error)

// ListTournamentsHandler serves tournaments open for registration or in
// progress.
func ListTournamentsHandler(tour *tournament.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ts, err := tour.ActiveTournaments(r.Context())
		if err != nil {
			http.Error(w, "failed to load tournaments", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ts); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}

// BracketHandler serves every match of one tournament, round order.
// GET /tournaments/bracket?tournament_id={uuid}
func BracketHandler(tour *tournament.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tournamentID, err := uuid.Parse(r.URL.Query().Get("tournament_id"))
		if err != nil {
			http.Error(w, "invalid tournament_id", http.StatusBadRequest)
			return
		}
		matches, err := tour.Bracket(tournamentID)
		if err != nil {
			if errors.Is(err, tournament.ErrTournamentNotFound) {
				http.Error(w, "tournament not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load bracket", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(matches); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}

type joinTournamentRequest struct {
	TournamentID string `json:"tournamentId"`
}

// JoinTournamentHandler registers the authenticated user for a tournament.
// POST /tournaments/join {"tournamentId": "{uuid}"}
func JoinTournamentHandler(tour *tournament.Service, users UserFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cookie := r.Header.Get("Cookie")
		if !strings.Contains(cookie, "auth_token=") {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}
		userIDStr, err := auth.AuthenticateJWT(extractCookieToken(cookie, "auth_token"))
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id format in token", http.StatusBadRequest)
			return
		}

		var req joinTournamentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		tournamentID, err := uuid.Parse(req.TournamentID)
		if err != nil {
			http.Error(w, "invalid tournamentId", http.StatusBadRequest)
			return
		}

		username := "Guest"
		if u, err := users(r.Context(), userID); err == nil {
			username = u.Username
		}

		if err := tour.JoinTournament(r.Context(), tournamentID, userID, username); err != nil {
			switch {
			case errors.Is(err, tournament.ErrTournamentNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, tournament.ErrRegistrationClosed),
				errors.Is(err, tournament.ErrTournamentFull),
				errors.Is(err, tournament.ErrAlreadyRegistered):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "failed to join tournament", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
