// internal/database/room.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeheist/codeheist/internal/game"
)

// RoomStore persists room documents as single JSONB rows. Every call is one
// atomic statement; the coordinator relies on that for its commit semantics.
type RoomStore struct{}

// NewRoomStore returns the pgx-backed room store.
func NewRoomStore() *RoomStore {
	return &RoomStore{}
}

// CreateRoom inserts a fresh room document.
func (s *RoomStore) CreateRoom(ctx context.Context, r *game.Room) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", r.Code, err)
	}
	q := `INSERT INTO rooms (id, room_code, state, doc) VALUES ($1, $2, $3, $4)`
	if _, err := DB.Exec(ctx, q, r.ID, r.Code, string(r.State), doc); err != nil {
		return fmt.Errorf("insert room %s: %w", r.Code, err)
	}
	return nil
}

// UpdateRoom replaces the stored document with the committed state.
func (s *RoomStore) UpdateRoom(ctx context.Context, r *game.Room) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", r.Code, err)
	}
	q := `UPDATE rooms SET state=$2, doc=$3, updated_at=now() WHERE id=$1`
	tag, err := DB.Exec(ctx, q, r.ID, string(r.State), doc)
	if err != nil {
		return fmt.Errorf("update room %s: %w", r.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update room %s: no such room", r.Code)
	}
	return nil
}

// GetRoomByCode loads a room document by its join code.
func (s *RoomStore) GetRoomByCode(ctx context.Context, code string) (*game.Room, error) {
	var doc []byte
	q := `SELECT doc FROM rooms WHERE room_code=$1`
	if err := DB.QueryRow(ctx, q, code).Scan(&doc); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("room %s not found", code)
		}
		return nil, fmt.Errorf("get room %s: %w", code, err)
	}
	var r game.Room
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &r, nil
}

// DeleteRoom removes a room document.
func (s *RoomStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM rooms WHERE id=$1`
	if _, err := DB.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return nil
}
