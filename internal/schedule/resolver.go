// Package schedule resolves a room's operating-hours configuration into the
// open/close window for a concrete date.
package schedule

import (
	"time"

	"studiobook/internal/model"
)

// Window is the resolved operating window for one civil date.
// Open and Close are minutes from midnight; Close may be the 24:00 sentinel
// (model.MinutesPerDay) only for always-open rooms.
type Window struct {
	Date   time.Time
	Open   int
	Close  int
	Closed bool
}

// closedWindow marks the date as having no operating hours.
func closedWindow(date time.Time) Window {
	return Window{Date: date, Closed: true}
}

// Resolve computes the operating window for a date from the room's
// operating-hour records. All records for a room share one mode.
//
// Sparse or malformed configuration (no records, a variable-mode weekday
// with no row, unparseable times, a window that does not open before it
// closes) resolves to a closed day rather than an error: availability
// degrades to empty instead of failing the query.
func Resolve(records []model.OperatingHour, date time.Time) Window {
	if len(records) == 0 {
		return closedWindow(date)
	}

	switch records[0].Mode {
	case model.ModeAlwaysOpen:
		return Window{Date: date, Open: 0, Close: model.MinutesPerDay}

	case model.ModeFixedDaily:
		return windowFromRecord(records[0], date)

	case model.ModeVariable:
		// time.Weekday is 0=Sunday, same convention as the records.
		weekday := int(date.Weekday())
		for _, rec := range records {
			if rec.DayOfWeek == weekday {
				return windowFromRecord(rec, date)
			}
		}
		return closedWindow(date)
	}

	return closedWindow(date)
}

func windowFromRecord(rec model.OperatingHour, date time.Time) Window {
	if rec.IsClosed {
		return closedWindow(date)
	}

	open, err := model.ParseClock(rec.OpenTime)
	if err != nil {
		return closedWindow(date)
	}
	closeAt, err := model.ParseClock(rec.CloseTime)
	if err != nil {
		return closedWindow(date)
	}

	// Overnight windows are not supported for fixed/variable modes; a
	// window that does not open strictly before it closes is a closed day.
	if open >= closeAt {
		return closedWindow(date)
	}

	return Window{Date: date, Open: open, Close: closeAt}
}
