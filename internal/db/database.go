package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection used by the service.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNotAvailable           = errors.New("not available")
	ErrPastDate               = errors.New("cannot book in the past")
	ErrDateTooFar             = errors.New("date too far in advance")
)

// New opens (and if necessary creates) the sqlite database at path.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode with a busy timeout so API reads don't block on writers.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instance := &DB{DB: conn, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			studio_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS operating_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			mode TEXT NOT NULL,
			day_of_week INTEGER NOT NULL DEFAULT 0,
			open_time TEXT,
			close_time TEXT,
			is_closed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_operating_hours_room_day
			ON operating_hours(room_id, day_of_week)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL UNIQUE,
			room_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			date DATE NOT NULL,
			end_date DATE,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			client_name TEXT NOT NULL DEFAULT '',
			client_phone TEXT NOT NULL DEFAULT '',
			comment TEXT NOT NULL DEFAULT '',
			reminder_sent INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_date
			ON bookings(room_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status
			ON bookings(status)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
