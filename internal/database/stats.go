// internal/database/stats.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeheist/codeheist/internal/models"
)

// StatsStore keeps per-player win/played counters and serves the leaderboard.
type StatsStore struct{}

// NewStatsStore returns the pgx-backed stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{}
}

// GetOrCreateStats fetches a player's stats row, inserting a zeroed one if
// this is their first game.
func (s *StatsStore) GetOrCreateStats(ctx context.Context, userID uuid.UUID) (*models.PlayerStats, error) {
	var st models.PlayerStats
	q := `
	INSERT INTO player_stats (user_id, games_played, games_won)
	VALUES ($1, 0, 0)
	ON CONFLICT (user_id) DO UPDATE SET user_id = player_stats.user_id
	RETURNING user_id, games_played, games_won, updated_at
	`
	err := DB.QueryRow(ctx, q, userID).Scan(&st.UserID, &st.GamesPlayed, &st.GamesWon, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create stats for %s: %w", userID, err)
	}
	return &st, nil
}

// UpdateStats applies an additive delta to a player's counters.
func (s *StatsStore) UpdateStats(ctx context.Context, userID uuid.UUID, delta models.StatsDelta) error {
	q := `
	INSERT INTO player_stats (user_id, games_played, games_won)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET
		games_played = player_stats.games_played + $2,
		games_won    = player_stats.games_won + $3,
		updated_at   = now()
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, userID, delta.GamesPlayed, delta.GamesWon)
		return err
	})
}

// RecordResult is the coordinator-facing shorthand for one finished game.
func (s *StatsStore) RecordResult(ctx context.Context, userID uuid.UUID, won bool) error {
	delta := models.StatsDelta{GamesPlayed: 1}
	if won {
		delta.GamesWon = 1
	}
	return s.UpdateStats(ctx, userID, delta)
}

// GetLeaderboard returns the top players by wins, then games played.
func (s *StatsStore) GetLeaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	q := `
	SELECT ps.user_id, u.username, ps.games_played, ps.games_won, ps.updated_at
	FROM player_stats ps
	JOIN users u ON u.id = ps.user_id
	ORDER BY ps.games_won DESC, ps.games_played DESC
	LIMIT $1
	`
	rows, err := DB.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	var out []models.PlayerStats
	for rows.Next() {
		var st models.PlayerStats
		if err := rows.Scan(&st.UserID, &st.Username, &st.GamesPlayed, &st.GamesWon, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
