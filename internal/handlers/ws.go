// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opopina/logiverse/internal/database"
	"github.com/opopina/logiverse/internal/middleware"
	"github.com/opopina/logiverse/internal/multiplayer"
	"github.com/opopina/logiverse/internal/notify"
	"github.com/opopina/logiverse/internal/tournament"
)

// wsCommand is one client request on the command socket. Type selects the
// operation; the remaining fields are read per operation.
type wsCommand struct {
	Type string `json:"type"`

	Room multiplayer.CreateRoomInput `json:"room"`

	RoomID       string `json:"roomId"`
	InviteCode   string `json:"inviteCode"`
	SessionID    string `json:"sessionId"`
	Answer       string `json:"answer"`
	TimeSpent    int    `json:"timeSpent"`
	Text         string `json:"text"`
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
	WinnerID     string `json:"winnerId"`
}

// WSHandler serves the single command socket at /ws. Every multiplayer and
// tournament operation arrives here as a typed JSON packet; results and
// room broadcasts flow back through the notify hub.
func WSHandler(logger *logrus.Logger, hub *notify.Hub, coord *multiplayer.Coordinator, tour *tournament.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"logiverse"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "logiverse" {
			c.Close(BadSubprotocolError, "client must speak the logiverse subprotocol")
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("user authentication failed on /ws: %v", err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		username := "Guest"
		if u, err := database.GetUserByID(r.Context(), userID); err == nil {
			username = u.Username
		} else {
			logger.Warnf("username lookup failed for %v: %v", userID, err)
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &notify.Conn{
			UserID:   userID,
			Username: username,
			Cancel:   cancel,
			OutChan:  make(chan map[string]interface{}, 10),
		}
		hub.Register(conn)

		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)
		logger.Infof("User %v connected to /ws", userID)

		go writePump(ctx, c, conn, logger)

		readPump(ctx, c, conn, logger, coord, tour)

		// A reconnect supersedes this conn in the hub; only the live one
		// tears down room presence.
		if hub.IsCurrent(conn) {
			coord.HandleDisconnect(context.Background(), userID)
		}
		hub.Unregister(conn)
		cancel()
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, nil)
	}
}

// readPump handles incoming command packets until the connection closes.
func readPump(ctx context.Context, c *websocket.Conn, conn *notify.Conn, logger *logrus.Logger, coord *multiplayer.Coordinator, tour *tournament.Service) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for user %v.", conn.UserID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// superseded or server shutdown
			} else {
				logger.Warnf("Read error for user %v: %v (CloseStatus: %d)", conn.UserID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from user %v. Ignoring.", typ, conn.UserID)
			continue
		}

		var cmd wsCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logger.Warnf("Invalid json from user %v: %v", conn.UserID, err)
			conn.WriteError("Invalid JSON format")
			continue
		}

		handleCommand(ctx, cmd, conn, logger, coord, tour)
	}
}

// handleCommand dispatches one packet. Coordinator and service methods do
// their own locking; failures go back to the sender as error events.
func handleCommand(ctx context.Context, cmd wsCommand, conn *notify.Conn, logger *logrus.Logger, coord *multiplayer.Coordinator, tour *tournament.Service) {
	switch cmd.Type {
	case "create_room":
		room, err := coord.CreateRoom(ctx, conn.UserID, conn.Username, cmd.Room)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		// The invite code is omitted from broadcast payloads; only the
		// creator receives it.
		conn.Write(map[string]interface{}{
			"type":       "invite_code",
			"roomId":     room.ID.String(),
			"inviteCode": room.InviteCode,
		})

	case "join_room":
		roomID, ok := parseID(cmd.RoomID, conn)
		if !ok {
			return
		}
		room, err := coord.JoinRoom(ctx, conn.UserID, conn.Username, roomID, cmd.InviteCode)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		conn.Write(map[string]interface{}{
			"type": "room_state",
			"room": room,
		})

	case "leave_room":
		roomID, ok := parseID(cmd.RoomID, conn)
		if !ok {
			return
		}
		if err := coord.LeaveRoom(ctx, conn.UserID, roomID); err != nil {
			conn.WriteError(err.Error())
		}

	case "start_game":
		roomID, ok := parseID(cmd.RoomID, conn)
		if !ok {
			return
		}
		if _, err := coord.StartGame(ctx, roomID, conn.UserID); err != nil {
			conn.WriteError(err.Error())
		}

	case "submit_answer":
		sessionID, ok := parseID(cmd.SessionID, conn)
		if !ok {
			return
		}
		if err := coord.SubmitAnswer(ctx, conn.UserID, sessionID, cmd.Answer, cmd.TimeSpent); err != nil {
			conn.WriteError(err.Error())
		}

	case "request_hint":
		sessionID, ok := parseID(cmd.SessionID, conn)
		if !ok {
			return
		}
		if err := coord.RequestHint(ctx, conn.UserID, sessionID); err != nil {
			conn.WriteError(err.Error())
		}

	case "room_message":
		roomID, ok := parseID(cmd.RoomID, conn)
		if !ok {
			return
		}
		if err := coord.SendRoomMessage(ctx, conn.UserID, conn.Username, roomID, cmd.Text); err != nil {
			conn.WriteError(err.Error())
		}

	case "join_tournament":
		tournamentID, ok := parseID(cmd.TournamentID, conn)
		if !ok {
			return
		}
		if err := tour.JoinTournament(ctx, tournamentID, conn.UserID, conn.Username); err != nil {
			conn.WriteError(err.Error())
		}

	case "report_match_result":
		matchID, ok := parseID(cmd.MatchID, conn)
		if !ok {
			return
		}
		winnerID, ok := parseID(cmd.WinnerID, conn)
		if !ok {
			return
		}
		if err := tour.ReportMatchResult(ctx, matchID, winnerID); err != nil {
			conn.WriteError(err.Error())
		}

	case "ping":
		conn.Write(map[string]interface{}{"type": "pong"})

	default:
		logger.Warnf("Unknown command type '%s' from user %v", cmd.Type, conn.UserID)
		conn.WriteError("unknown command type")
	}
}

func parseID(s string, conn *notify.Conn) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		conn.WriteError("invalid id format")
		return uuid.Nil, false
	}
	return id, true
}

// writePump drains the connection's OutChan onto the wire.
func writePump(ctx context.Context, c *websocket.Conn, conn *notify.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	defer func() {
		_ = c.Close(websocket.StatusGoingAway, "write pump stopping")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing msg for user %v: %v", conn.UserID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()

			if err != nil {
				logger.Warnf("Failed to write to websocket for user %v: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Ping failed for user %v: %v", conn.UserID, err)
				return
			}
		}
	}
}
