package reminders

import (
	"context"
	"time"

	"studiobook/internal/model"
)

// BookingStore provides access to bookings for the reminder service.
type BookingStore interface {
	// GetUpcomingBookings returns active bookings starting within the given
	// duration that haven't had reminders sent yet.
	GetUpcomingBookings(ctx context.Context, within time.Duration) ([]model.Booking, error)

	// MarkReminderSent marks a booking as having had its reminder sent.
	MarkReminderSent(ctx context.Context, bookingID int64) error
}

// RoomStore resolves rooms, needed for their timezones.
type RoomStore interface {
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
}

// Notifier sends reminder notifications to users.
type Notifier interface {
	SendReminder(ctx context.Context, booking model.Booking, room *model.Room) error
}
