package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeheist/codeheist/internal/auth"
	"github.com/codeheist/codeheist/internal/database"
	"github.com/codeheist/codeheist/internal/room"
)

// ListRoomsHandler returns the live room directory: join code, name, state,
// and seat counts for every room the manager is running.
func ListRoomsHandler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings := mgr.ActiveRooms(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(listings); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}

// LeaderboardHandler returns the top players by games won. Accepts an
// optional ?limit= query parameter.
func LeaderboardHandler(stats *database.StatsStore, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		rows, err := stats.GetLeaderboard(r.Context(), limit)
		if err != nil {
			logger.Errorf("leaderboard query failed: %v", err)
			http.Error(w, "failed to fetch leaderboard", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	}
}

// PlayerStatsHandler returns the calling player's own results row, creating
// a zeroed one on first sight.
func PlayerStatsHandler(stats *database.StatsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
		userIDStr, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id in token", http.StatusForbidden)
			return
		}

		st, err := stats.GetOrCreateStats(r.Context(), userID)
		if err != nil {
			http.Error(w, "failed to fetch stats", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(st)
	}
}

// HealthHandler reports process liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
