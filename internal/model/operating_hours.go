package model

import "time"

// HoursMode defines how a room's operating hours are configured.
// All operating-hour records for one room share the same mode.
type HoursMode string

const (
	// ModeAlwaysOpen means the room operates around the clock.
	ModeAlwaysOpen HoursMode = "always_open"
	// ModeFixedDaily means the same open/close window applies every day.
	ModeFixedDaily HoursMode = "fixed_daily"
	// ModeVariable means each weekday has its own record (or none = closed).
	ModeVariable HoursMode = "variable"
)

// OperatingHour is one operating-hours row for a room.
// DayOfWeek is meaningful only in variable mode and uses 0=Sunday,
// matching time.Weekday.
type OperatingHour struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	Mode      HoursMode `json:"mode"`
	DayOfWeek int       `json:"day_of_week"` // 0-6 (Sunday-Saturday)
	OpenTime  string    `json:"open_time"`   // "09:00"
	CloseTime string    `json:"close_time"`  // "18:00"
	IsClosed  bool      `json:"is_closed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
