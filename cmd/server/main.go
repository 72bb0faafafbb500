// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/codeheist/codeheist/internal/auth"
	"github.com/codeheist/codeheist/internal/cache"
	"github.com/codeheist/codeheist/internal/database"
	"github.com/codeheist/codeheist/internal/handlers"
	"github.com/codeheist/codeheist/internal/metrics"
	"github.com/codeheist/codeheist/internal/middleware"
	"github.com/codeheist/codeheist/internal/room"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	var actionLogger room.ActionLogger
	actions, err := cache.Connect()
	if err != nil {
		// Action history is best effort; the game runs without it.
		logger.Warnf("historian queue unavailable: %v", err)
	} else {
		actionLogger = actions
	}

	m := metrics.New("codeheist")

	store := database.NewRoomStore()
	stats := database.NewStatsStore()

	mgr := room.NewManager(store, stats, actionLogger, logger, m)
	mgr.StartReaper(context.Background(), time.Minute, 10*time.Minute)

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/claim", handlers.ClaimEphemeralHandler)
	mux.HandleFunc("/user/stats", handlers.PlayerStatsHandler(stats))

	// room websocket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomWSHandler(logger, mgr, stats, m),
	)))

	// rest surface
	mux.Handle("/rooms/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListRoomsHandler(mgr),
	)))
	mux.Handle("/leaderboard", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LeaderboardHandler(stats, logger),
	)))
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.Handle("/metrics", metrics.Handler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
