// Package availability computes bookable start and end times for a room on
// a single civil date. Both entry points are pure functions over an
// immutable snapshot of bookings: no clock sampling, no I/O, safe to call
// from any number of request handlers concurrently.
package availability

import (
	"fmt"
	"time"

	"studiobook/internal/model"
	"studiobook/internal/schedule"
)

// DefaultSlotMinutes is the bookable slot granularity.
const DefaultSlotMinutes = 60

// Slot is one bookable time: the civil clock time plus the timezone-aware
// instant for that date and time in the studio's zone.
type Slot struct {
	Time      string `json:"time"`       // "10:00"
	ISOString string `json:"iso_string"` // "2025-10-31T10:00:00+01:00"
}

// StartTimes returns the valid booking start times for the resolved window,
// in ascending order. now must be the current instant in the studio's zone;
// it is only consulted when the window's date is today, in which case the
// earliest candidate is raised to the next slot boundary strictly after now
// (an exact 14:00:00 still advances to 15:00).
//
// slotMinutes must be positive and loc non-nil; violating either is a
// caller bug and fails loudly rather than returning an empty list.
func StartTimes(win schedule.Window, bookings []model.Booking, now time.Time, loc *time.Location, slotMinutes int) ([]Slot, error) {
	if err := checkArgs(loc, slotMinutes); err != nil {
		return nil, err
	}
	if win.Closed {
		return nil, nil
	}

	// Open time is normally on the hour, but never assume: round up to the
	// next slot multiple from midnight.
	earliest := ceilToSlot(win.Open, slotMinutes)

	if model.SameDate(win.Date, now.In(loc)) {
		nowLocal := now.In(loc)
		cutoff := nextSlotAfter(nowLocal.Hour()*60+nowLocal.Minute(), slotMinutes)
		if cutoff > earliest {
			earliest = cutoff
		}
	}

	occupied := occupiedIntervals(bookings, win.Date)

	var out []Slot
	for t := earliest; t+slotMinutes <= win.Close; t += slotMinutes {
		if conflicts(occupied, t, t+slotMinutes) {
			continue
		}
		out = append(out, newSlot(win.Date, t, loc))
	}
	return out, nil
}

// EndTimes returns the valid booking end times for a booking starting at
// startMinutes (minutes from midnight) on the window's date, in ascending
// order. The start is re-validated here rather than trusting the caller:
// a closed window, a start outside the window, or a start that conflicts
// with an active booking yields an empty list.
//
// The candidate interval grows monotonically from the start, so the first
// existing booking it reaches caps every later end time as well.
func EndTimes(win schedule.Window, bookings []model.Booking, startMinutes int, loc *time.Location, slotMinutes int) ([]Slot, error) {
	if err := checkArgs(loc, slotMinutes); err != nil {
		return nil, err
	}
	if win.Closed {
		return nil, nil
	}
	if startMinutes < win.Open || startMinutes+slotMinutes > win.Close {
		return nil, nil
	}

	occupied := occupiedIntervals(bookings, win.Date)

	var out []Slot
	for end := startMinutes + slotMinutes; end <= win.Close; end += slotMinutes {
		if conflicts(occupied, startMinutes, end) {
			break
		}
		out = append(out, newSlot(win.Date, end, loc))
	}
	return out, nil
}

func checkArgs(loc *time.Location, slotMinutes int) error {
	if slotMinutes <= 0 {
		return fmt.Errorf("slot minutes must be positive, got %d", slotMinutes)
	}
	if loc == nil {
		return fmt.Errorf("location must not be nil")
	}
	return nil
}

// HasConflict reports whether any active booking occupies part of the
// half-open interval [from, to) in minutes on the given civil date. This is
// the same rule slot enumeration applies per candidate, exported for
// commit-time validation of intervals the enumerators don't produce
// themselves (multi-day bookings).
func HasConflict(bookings []model.Booking, date time.Time, from, to int) bool {
	return conflicts(occupiedIntervals(bookings, date), from, to)
}

type interval struct {
	from, to int
}

// occupiedIntervals reduces the booking set to the half-open minute
// intervals occupied on the date. Cancelled and expired bookings are
// filtered here so the exclusion rule lives in one place.
func occupiedIntervals(bookings []model.Booking, date time.Time) []interval {
	var out []interval
	for i := range bookings {
		b := &bookings[i]
		if !b.IsActive() {
			continue
		}
		from, to, ok := b.OccupiedOn(date)
		if !ok {
			continue
		}
		out = append(out, interval{from: from, to: to})
	}
	return out
}

// conflicts reports whether any occupied interval overlaps the half-open
// candidate [from, to). Touching boundaries do not conflict: a booking
// ending at 14:00 never blocks a candidate starting at 14:00.
func conflicts(occupied []interval, from, to int) bool {
	for _, iv := range occupied {
		if iv.from < to && iv.to > from {
			return true
		}
	}
	return false
}

// ceilToSlot rounds minutes up to the next slot multiple, keeping exact
// multiples in place.
func ceilToSlot(minutes, slotMinutes int) int {
	rem := minutes % slotMinutes
	if rem == 0 {
		return minutes
	}
	return minutes + slotMinutes - rem
}

// nextSlotAfter rounds strictly up: an exact boundary still advances one
// slot, so there are no same-minute bookings.
func nextSlotAfter(minutes, slotMinutes int) int {
	return (minutes/slotMinutes + 1) * slotMinutes
}

func newSlot(date time.Time, minutes int, loc *time.Location) Slot {
	instant := time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, loc)
	return Slot{
		Time:      model.FormatClock(minutes),
		ISOString: instant.Format(time.RFC3339),
	}
}
