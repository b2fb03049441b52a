package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studiobook/internal/db"
	"studiobook/internal/events"
	"studiobook/internal/model"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *mockRepo) ListOperatingHours(ctx context.Context, roomID int64) ([]model.OperatingHour, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.OperatingHour), args.Error(1)
}

func (m *mockRepo) GetBookingsForDate(ctx context.Context, roomID int64, date time.Time) ([]model.Booking, error) {
	args := m.Called(ctx, roomID, date)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *mockRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) GetBookingByReference(ctx context.Context, reference string) (*model.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	return m.Called(ctx, id, version, status).Error(0)
}

func (m *mockRepo) ExpireStaleBookings(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, roomID int64, date time.Time) (Unlocker, error) {
	args := m.Called(ctx, roomID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Unlocker), args.Error(1)
}

type mockLock struct {
	mock.Mock
}

func (m *mockLock) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

var testLogger = zerolog.New(io.Discard)

func fixedHoursRoom() (*model.Room, []model.OperatingHour) {
	room := &model.Room{ID: 1, StudioID: 1, Name: "Studio A", Timezone: "UTC", IsActive: true}
	records := []model.OperatingHour{
		{RoomID: 1, Mode: model.ModeFixedDaily, OpenTime: "09:00", CloseTime: "17:00"},
	}
	return room, records
}

func newTestService(repo *mockRepo, locker RoomLocker, bus EventPublisher) *BookingService {
	s := NewBookingService(repo, locker, bus, &testLogger, Rules{
		SlotMinutes:   60,
		PendingExpiry: 30 * time.Minute,
		MaxAdvance:    90 * 24 * time.Hour,
	})
	// Pin the clock well before the test dates so the today-cutoff is inert.
	s.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestStartTimes_FiltersBookedSlots(t *testing.T) {
	repo := new(mockRepo)
	room, records := fixedHoursRoom()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{
		{RoomID: 1, Date: day, StartTime: "10:00", EndTime: "12:00", Status: model.StatusConfirmed},
	}, nil)

	s := newTestService(repo, nil, nil)
	slots, err := s.StartTimes(context.Background(), 1, day)
	require.NoError(t, err)

	var got []string
	for _, slot := range slots {
		got = append(got, slot.Time)
	}
	assert.Equal(t, []string{"09:00", "12:00", "13:00", "14:00", "15:00", "16:00"}, got)
}

func TestEndTimes_RejectsMalformedStart(t *testing.T) {
	repo := new(mockRepo)
	s := newTestService(repo, nil, nil)

	_, err := s.EndTimes(context.Background(), 1, time.Now(), "25:99")
	assert.Error(t, err)
	repo.AssertNotCalled(t, "GetRoom")
}

func TestCreateBooking_Success(t *testing.T) {
	repo := new(mockRepo)
	lockerMock := new(mockLocker)
	lock := new(mockLock)
	bus := new(mockBus)

	room, records := fixedHoursRoom()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{}, nil)
	repo.On("CreateBooking", mock.Anything, mock.AnythingOfType("*model.Booking")).Return(nil)
	lockerMock.On("Acquire", mock.Anything, int64(1), day).Return(lock, nil)
	lock.On("Release", mock.Anything).Return(nil)
	bus.On("PublishJSON", events.TypeBookingCreated, mock.Anything).Return(nil)

	s := newTestService(repo, lockerMock, bus)
	booking, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    1,
		UserID:    42,
		Date:      day,
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, booking.Status)
	assert.NotEmpty(t, booking.Reference)
	lock.AssertCalled(t, "Release", mock.Anything)
	bus.AssertExpectations(t)
}

func TestCreateBooking_ConflictRejected(t *testing.T) {
	repo := new(mockRepo)
	room, records := fixedHoursRoom()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{
		{RoomID: 1, Date: day, StartTime: "10:00", EndTime: "12:00", Status: model.StatusConfirmed},
	}, nil)

	s := newTestService(repo, nil, nil)
	_, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    1,
		Date:      day,
		StartTime: "11:00",
		EndTime:   "13:00",
	})
	assert.ErrorIs(t, err, db.ErrNotAvailable)
	repo.AssertNotCalled(t, "CreateBooking")
}

func TestCreateBooking_EndCappedByExistingBooking(t *testing.T) {
	repo := new(mockRepo)
	room, records := fixedHoursRoom()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{
		{RoomID: 1, Date: day, StartTime: "13:00", EndTime: "14:00", Status: model.StatusPending},
	}, nil)

	s := newTestService(repo, nil, nil)

	// Requested interval 10:00-15:00 swallows the 13:00 booking.
	_, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    1,
		Date:      day,
		StartTime: "10:00",
		EndTime:   "15:00",
	})
	assert.ErrorIs(t, err, db.ErrNotAvailable)
}

func TestCreateBooking_PastDate(t *testing.T) {
	repo := new(mockRepo)
	room, records := fixedHoursRoom()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{}, nil)

	s := newTestService(repo, nil, nil)
	_, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    1,
		Date:      day,
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	assert.ErrorIs(t, err, db.ErrPastDate)
}

func TestCreateBooking_TooFarAhead(t *testing.T) {
	repo := new(mockRepo)
	room, records := fixedHoursRoom()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{}, nil)

	s := newTestService(repo, nil, nil)
	_, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    1,
		Date:      day,
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	assert.ErrorIs(t, err, db.ErrDateTooFar)
}

func TestCreateBooking_MultiDayRequiresAlwaysOpen(t *testing.T) {
	repo := new(mockRepo)
	room, records := fixedHoursRoom()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 2)

	repo.On("GetRoom", mock.Anything, int64(1)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(1)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(1), day).Return([]model.Booking{}, nil)

	s := newTestService(repo, nil, nil)
	_, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    1,
		Date:      day,
		EndDate:   &end,
		StartTime: "18:00",
		EndTime:   "11:00",
	})
	assert.ErrorIs(t, err, db.ErrNotAvailable)
}

func TestCreateBooking_MultiDayAlwaysOpen(t *testing.T) {
	repo := new(mockRepo)
	room := &model.Room{ID: 2, StudioID: 1, Name: "24/7 Room", Timezone: "UTC", IsActive: true}
	records := []model.OperatingHour{{RoomID: 2, Mode: model.ModeAlwaysOpen}}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 2)

	repo.On("GetRoom", mock.Anything, int64(2)).Return(room, nil)
	repo.On("ListOperatingHours", mock.Anything, int64(2)).Return(records, nil)
	repo.On("GetBookingsForDate", mock.Anything, int64(2), mock.Anything).Return([]model.Booking{}, nil)
	repo.On("CreateBooking", mock.Anything, mock.AnythingOfType("*model.Booking")).Return(nil)

	s := newTestService(repo, nil, nil)
	booking, err := s.CreateBooking(context.Background(), CreateBookingRequest{
		RoomID:    2,
		UserID:    7,
		Date:      day,
		EndDate:   &end,
		StartTime: "18:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.True(t, booking.IsRangeBooking())
}

func TestCancelBooking(t *testing.T) {
	repo := new(mockRepo)
	bus := new(mockBus)
	existing := &model.Booking{
		ID:        5,
		Reference: "ref-1",
		Status:    model.StatusConfirmed,
		Version:   3,
	}

	repo.On("GetBookingByReference", mock.Anything, "ref-1").Return(existing, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(5), int64(3), model.StatusCancelled).Return(nil)
	bus.On("PublishJSON", events.TypeBookingCancelled, mock.Anything).Return(nil)

	s := newTestService(repo, nil, bus)
	booking, err := s.CancelBooking(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, booking.Status)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	repo := new(mockRepo)
	existing := &model.Booking{ID: 5, Reference: "ref-1", Status: model.StatusCancelled}
	repo.On("GetBookingByReference", mock.Anything, "ref-1").Return(existing, nil)

	s := newTestService(repo, nil, nil)
	_, err := s.CancelBooking(context.Background(), "ref-1")
	assert.ErrorIs(t, err, db.ErrNotAvailable)
	repo.AssertNotCalled(t, "UpdateBookingStatusWithVersion")
}

func TestCancelBooking_VersionConflict(t *testing.T) {
	repo := new(mockRepo)
	existing := &model.Booking{ID: 5, Reference: "ref-1", Status: model.StatusPending, Version: 1}
	repo.On("GetBookingByReference", mock.Anything, "ref-1").Return(existing, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(5), int64(1), model.StatusCancelled).
		Return(db.ErrConcurrentModification)

	s := newTestService(repo, nil, nil)
	_, err := s.CancelBooking(context.Background(), "ref-1")
	assert.ErrorIs(t, err, db.ErrConcurrentModification)
}
