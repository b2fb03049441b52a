package db

import (
	"context"
	"database/sql"
	"fmt"

	"studiobook/internal/model"
)

// ListOperatingHours returns all operating-hour records for a room, ordered
// by weekday so variable-mode lookups are stable.
func (db *DB) ListOperatingHours(ctx context.Context, roomID int64) ([]model.OperatingHour, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, room_id, mode, day_of_week, open_time, close_time, is_closed,
		       created_at, updated_at
		FROM operating_hours
		WHERE room_id = ?
		ORDER BY day_of_week`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.OperatingHour
	for rows.Next() {
		var rec model.OperatingHour
		var open, closeAt sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.RoomID, &rec.Mode, &rec.DayOfWeek, &open, &closeAt,
			&rec.IsClosed, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if open.Valid {
			rec.OpenTime = open.String
		}
		if closeAt.Valid {
			rec.CloseTime = closeAt.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReplaceOperatingHours swaps the full record set for a room in one
// transaction, keeping the one-mode-per-room invariant intact.
func (db *DB) ReplaceOperatingHours(ctx context.Context, roomID int64, records []model.OperatingHour) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM operating_hours WHERE room_id = ?", roomID); err != nil {
		return fmt.Errorf("clear operating hours: %w", err)
	}

	for _, rec := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO operating_hours (room_id, mode, day_of_week, open_time, close_time, is_closed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			roomID, rec.Mode, rec.DayOfWeek, rec.OpenTime, rec.CloseTime, rec.IsClosed,
		)
		if err != nil {
			return fmt.Errorf("insert operating hours for room %d: %w", roomID, err)
		}
	}

	return tx.Commit()
}
