package model

import "time"

// Booking statuses. Only active bookings participate in conflict checks.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Booking represents a room booking record.
type Booking struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"` // external UUID handed to clients
	RoomID      int64      `json:"room_id"`
	UserID      int64      `json:"user_id"`
	Date        time.Time  `json:"date"`               // civil start date
	EndDate     *time.Time `json:"end_date,omitempty"` // nullable: set only for multi-day bookings
	StartTime   string     `json:"start_time"`         // "HH:MM" in the studio's zone
	EndTime     string     `json:"end_time"`           // "HH:MM" in the studio's zone
	Status      string     `json:"status"`
	ClientName  string     `json:"client_name,omitempty"`
	ClientPhone string     `json:"client_phone,omitempty"`
	Comment     string     `json:"comment,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version"`
}

// IsActive reports whether the booking blocks availability.
// Cancelled and expired bookings are ignored by conflict checks.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled && b.Status != StatusExpired
}

// EffectiveEndDate returns the civil date the booking ends on.
// If EndDate is nil the booking is a single-day booking.
func (b *Booking) EffectiveEndDate() time.Time {
	if b.EndDate != nil {
		return *b.EndDate
	}
	return b.Date
}

// IsRangeBooking reports whether the booking spans multiple days.
func (b *Booking) IsRangeBooking() bool {
	return b.EndDate != nil && !SameDate(*b.EndDate, b.Date)
}

// CoversDate reports whether the booking occupies any time on the given
// civil date, including interior days of a multi-day booking.
func (b *Booking) CoversDate(date time.Time) bool {
	_, _, ok := b.OccupiedOn(date)
	return ok
}

// OccupiedOn returns the half-open interval [from, to) in minutes from
// midnight that the booking occupies on the given civil date, and whether it
// occupies that date at all. Multi-day bookings occupy the first day from
// StartTime to midnight, interior days fully, and the last day from midnight
// to EndTime. Malformed clock strings yield an empty interval.
func (b *Booking) OccupiedOn(date time.Time) (from, to int, ok bool) {
	start := truncateToDate(b.Date)
	end := truncateToDate(b.EffectiveEndDate())
	day := truncateToDate(date)

	if day.Before(start) || day.After(end) {
		return 0, 0, false
	}

	from = 0
	to = MinutesPerDay

	if day.Equal(start) {
		m, err := ParseClock(b.StartTime)
		if err != nil {
			return 0, 0, false
		}
		from = m
	}
	if day.Equal(end) {
		m, err := ParseClock(b.EndTime)
		if err != nil {
			return 0, 0, false
		}
		to = m
	}

	if from >= to {
		return 0, 0, false
	}
	return from, to, true
}

// SameDate reports whether two instants fall on the same civil date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
