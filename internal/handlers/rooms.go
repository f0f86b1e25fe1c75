// internal/handlers/rooms.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/opopina/logiverse/internal/models"
	"github.com/opopina/logiverse/internal/multiplayer"
)

// ListRoomsHandler serves the public room browser: every joinable room,
// oldest first, invite codes stripped.
func ListRoomsHandler(coord *multiplayer.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rooms := coord.OpenRooms()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rooms); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}

// MessageFetcher loads recent chat for a room, newest last.
type MessageFetcher func(ctx context.Context, roomID uuid.UUID, limit int) ([]models.RoomMessage, error)

const defaultMessageLimit = 50

// RoomMessagesHandler serves recent room chat, persona lines included.
// GET /rooms/messages?room_id={uuid}&limit={n}
func RoomMessagesHandler(fetch MessageFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		roomID, err := uuid.Parse(r.URL.Query().Get("room_id"))
		if err != nil {
			http.Error(w, "invalid room_id", http.StatusBadRequest)
			return
		}
		limit := defaultMessageLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		msgs, err := fetch(r.Context(), roomID, limit)
		if err != nil {
			http.Error(w, "failed to load messages", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(msgs); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}
