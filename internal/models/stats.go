// internal/models/stats.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStats is one row of the per-player results store.
type PlayerStats struct {
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatsDelta is an additive patch applied to a player's stats row.
type StatsDelta struct {
	GamesPlayed int
	GamesWon    int
}
