// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/opopina/logiverse/internal/auth"
	"github.com/opopina/logiverse/internal/cache"
	"github.com/opopina/logiverse/internal/database"
	"github.com/opopina/logiverse/internal/handlers"
	"github.com/opopina/logiverse/internal/middleware"
	"github.com/opopina/logiverse/internal/multiplayer"
	"github.com/opopina/logiverse/internal/notify"
	"github.com/opopina/logiverse/internal/persona"
	"github.com/opopina/logiverse/internal/tournament"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	hub := notify.NewHub()
	loggie := persona.NewClient()
	repo := database.Repo{}

	coord := multiplayer.NewCoordinator(repo, hub, loggie, logger)

	// The activity journal is best-effort: without Redis the game runs,
	// the journal worker just has nothing to drain.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, activity journaling disabled: %v", err)
	} else {
		coord.Journal = cache.PublishActivity
	}

	tour := tournament.NewService(repo, hub, logger)
	sched, err := tour.StartWeekendScheduler()
	if err != nil {
		logger.Warnf("weekend tournament scheduler failed to start: %v", err)
	} else {
		defer func() { _ = sched.Shutdown() }()
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/claim", handlers.ClaimEphemeralHandler)

	// command socket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, hub, coord, tour),
	)))

	// room endpoints
	mux.Handle("/rooms", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListRoomsHandler(coord),
	)))
	mux.Handle("/rooms/messages", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomMessagesHandler(database.GetRoomMessages),
	)))

	// tournament endpoints
	mux.Handle("/tournaments", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListTournamentsHandler(tour),
	)))
	mux.Handle("/tournaments/bracket", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.BracketHandler(tour),
	)))
	mux.Handle("/tournaments/join", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.JoinTournamentHandler(tour, database.GetUserByID),
	)))

	// stats endpoints
	mux.Handle("/stats", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.StatsHandler(database.GetPlayerStats),
	)))
	mux.Handle("/leaderboard", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LeaderboardHandler(database.GetLeaderboard),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
