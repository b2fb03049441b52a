package db

import (
	"context"
	"database/sql"
	"errors"

	"studiobook/internal/model"
)

// GetRoom returns a room by ID.
func (db *DB) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	err := db.QueryRowContext(ctx, `
		SELECT id, studio_id, name, timezone, is_active, created_at, updated_at
		FROM rooms WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.StudioID, &r.Name, &r.Timezone, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListActiveRooms returns all active rooms.
func (db *DB) ListActiveRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, studio_id, name, timezone, is_active, created_at, updated_at
		FROM rooms WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.StudioID, &r.Name, &r.Timezone, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// UpsertRoom creates or updates a room with a fixed ID. Used by the
// studios.yaml seed loader, which owns room identity.
func (db *DB) UpsertRoom(ctx context.Context, r *model.Room) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO rooms (id, studio_id, name, timezone, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			studio_id = excluded.studio_id,
			name = excluded.name,
			timezone = excluded.timezone,
			is_active = excluded.is_active,
			updated_at = CURRENT_TIMESTAMP`,
		r.ID, r.StudioID, r.Name, r.Timezone, r.IsActive,
	)
	return err
}
