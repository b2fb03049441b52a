package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"studiobook/internal/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestResolve_NoRecords(t *testing.T) {
	win := Resolve(nil, date(2026, 1, 15))
	assert.True(t, win.Closed)
}

func TestResolve_AlwaysOpen(t *testing.T) {
	records := []model.OperatingHour{
		{RoomID: 1, Mode: model.ModeAlwaysOpen},
	}
	win := Resolve(records, date(2026, 1, 15))
	assert.False(t, win.Closed)
	assert.Equal(t, 0, win.Open)
	assert.Equal(t, model.MinutesPerDay, win.Close)
}

func TestResolve_FixedDaily(t *testing.T) {
	records := []model.OperatingHour{
		{RoomID: 1, Mode: model.ModeFixedDaily, OpenTime: "09:00", CloseTime: "17:00"},
	}

	// Weekday-independent: same window on a Monday and a Sunday.
	monday := date(2026, 1, 12)
	sunday := date(2026, 1, 11)
	for _, d := range []time.Time{monday, sunday} {
		win := Resolve(records, d)
		assert.False(t, win.Closed)
		assert.Equal(t, 540, win.Open)
		assert.Equal(t, 1020, win.Close)
	}
}

func TestResolve_Variable_WeekdaySelection(t *testing.T) {
	// day_of_week uses 0=Sunday. A Saturday record must not match a Monday.
	records := []model.OperatingHour{
		{RoomID: 1, Mode: model.ModeVariable, DayOfWeek: 6, OpenTime: "10:00", CloseTime: "20:00"},
		{RoomID: 1, Mode: model.ModeVariable, DayOfWeek: 1, OpenTime: "08:00", CloseTime: "16:00"},
	}

	monday := date(2026, 1, 12)
	assert.Equal(t, time.Monday, monday.Weekday())
	win := Resolve(records, monday)
	assert.False(t, win.Closed)
	assert.Equal(t, 480, win.Open)
	assert.Equal(t, 960, win.Close)

	saturday := date(2026, 1, 10)
	assert.Equal(t, time.Saturday, saturday.Weekday())
	win = Resolve(records, saturday)
	assert.False(t, win.Closed)
	assert.Equal(t, 600, win.Open)

	// No record for Wednesday: closed.
	wednesday := date(2026, 1, 14)
	win = Resolve(records, wednesday)
	assert.True(t, win.Closed)
}

func TestResolve_Variable_ClosedDay(t *testing.T) {
	records := []model.OperatingHour{
		{RoomID: 1, Mode: model.ModeVariable, DayOfWeek: 0, IsClosed: true},
	}
	sunday := date(2026, 1, 11)
	assert.Equal(t, time.Sunday, sunday.Weekday())
	win := Resolve(records, sunday)
	assert.True(t, win.Closed)
}

func TestResolve_MalformedDegradesToClosed(t *testing.T) {
	tests := []struct {
		name string
		rec  model.OperatingHour
	}{
		{"bad open time", model.OperatingHour{Mode: model.ModeFixedDaily, OpenTime: "nine", CloseTime: "17:00"}},
		{"bad close time", model.OperatingHour{Mode: model.ModeFixedDaily, OpenTime: "09:00", CloseTime: ""}},
		{"zero-length window", model.OperatingHour{Mode: model.ModeFixedDaily, OpenTime: "09:00", CloseTime: "09:00"}},
		{"overnight window", model.OperatingHour{Mode: model.ModeFixedDaily, OpenTime: "22:00", CloseTime: "02:00"}},
		{"unknown mode", model.OperatingHour{Mode: "lunar", OpenTime: "09:00", CloseTime: "17:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			win := Resolve([]model.OperatingHour{tt.rec}, date(2026, 1, 15))
			assert.True(t, win.Closed)
		})
	}
}
