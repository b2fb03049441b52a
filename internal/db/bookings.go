package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"studiobook/internal/model"
)

const bookingColumns = `id, reference, room_id, user_id, date, end_date, start_time, end_time,
	status, client_name, client_phone, comment, created_at, updated_at, version`

func scanBooking(scanner interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var endDate sql.NullTime
	err := scanner.Scan(
		&b.ID, &b.Reference, &b.RoomID, &b.UserID, &b.Date, &endDate,
		&b.StartTime, &b.EndTime, &b.Status, &b.ClientName, &b.ClientPhone,
		&b.Comment, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		t := endDate.Time
		b.EndDate = &t
	}
	return &b, nil
}

// GetBooking returns a booking by ID.
func (db *DB) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetBookingByReference returns a booking by its external UUID reference.
func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*model.Booking, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE reference = ?", reference)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetBookingsForDate returns every booking of the room that occupies any
// time on the given civil date. Range bookings are matched through their
// end_date, so interior days are included. All statuses are returned; the
// availability calculator owns the exclusion rule.
func (db *DB) GetBookingsForDate(ctx context.Context, roomID int64, date time.Time) ([]model.Booking, error) {
	day := date.Format("2006-01-02")
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE room_id = ?
		  AND date(date) <= date(?)
		  AND date(COALESCE(end_date, date)) >= date(?)
		ORDER BY date, start_time`,
		roomID, day, day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// GetBookingsByDateRange returns bookings whose occupied dates intersect
// [start, end], across all rooms. Used by exports and reminders.
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]model.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE date(date) <= date(?)
		  AND date(COALESCE(end_date, date)) >= date(?)
		ORDER BY date, start_time`,
		end.Format("2006-01-02"), start.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CreateBooking inserts a new booking and fills in its generated ID.
func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	var endDate any
	if b.EndDate != nil {
		endDate = b.EndDate.Format("2006-01-02")
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO bookings (reference, room_id, user_id, date, end_date, start_time, end_time,
			status, client_name, client_phone, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.RoomID, b.UserID, b.Date.Format("2006-01-02"), endDate,
		b.StartTime, b.EndTime, b.Status, b.ClientName, b.ClientPhone, b.Comment,
	)
	if err != nil {
		return err
	}

	b.ID, err = res.LastInsertId()
	return err
}

// UpdateBookingStatusWithVersion updates a booking's status with an
// optimistic concurrency check on the version column.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`,
		status, id, version,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ExpireStaleBookings marks pending bookings older than the cutoff as
// expired and returns how many were affected.
func (db *DB) ExpireStaleBookings(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND created_at < ?`,
		model.StatusExpired, model.StatusPending, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteOldBookings removes bookings whose end date is older than the
// retention window. Used by the audit service after a successful export.
func (db *DB) DeleteOldBookings(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Format("2006-01-02")
	res, err := db.ExecContext(ctx, `
		DELETE FROM bookings
		WHERE date(COALESCE(end_date, date)) < date(?)`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetUpcomingBookings returns active bookings starting within the given
// duration that have not had a reminder sent. Start instants are computed
// in each room's own timezone.
func (db *DB) GetUpcomingBookings(ctx context.Context, within time.Duration) ([]model.Booking, error) {
	// Fetch a generous date window and filter precisely in Go, where the
	// per-room timezone is available.
	now := time.Now()
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status IN (?, ?)
		  AND reminder_sent = 0
		  AND date(date) BETWEEN date(?) AND date(?)
		ORDER BY date, start_time`,
		model.StatusPending, model.StatusConfirmed,
		now.AddDate(0, 0, -1).Format("2006-01-02"),
		now.Add(within).AddDate(0, 0, 1).Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// MarkReminderSent flags a booking's reminder as sent.
func (db *DB) MarkReminderSent(ctx context.Context, bookingID int64) error {
	_, err := db.ExecContext(ctx,
		"UPDATE bookings SET reminder_sent = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		bookingID,
	)
	return err
}
