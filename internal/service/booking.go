// Package service implements the booking operations on top of the pure
// availability core: availability queries, booking creation with a
// commit-time re-validation under a per-room lock, cancellation, and the
// pending-booking expiry sweep.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studiobook/internal/availability"
	"studiobook/internal/db"
	"studiobook/internal/events"
	"studiobook/internal/metrics"
	"studiobook/internal/model"
	"studiobook/internal/schedule"
)

// Repository is the storage surface the booking service needs.
type Repository interface {
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	ListOperatingHours(ctx context.Context, roomID int64) ([]model.OperatingHour, error)
	GetBookingsForDate(ctx context.Context, roomID int64, date time.Time) ([]model.Booking, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBookingByReference(ctx context.Context, reference string) (*model.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error
	ExpireStaleBookings(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Unlocker releases a held room lock.
type Unlocker interface {
	Release(ctx context.Context) error
}

// RoomLocker serializes booking commits per room and date.
type RoomLocker interface {
	Acquire(ctx context.Context, roomID int64, date time.Time) (Unlocker, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Rules bounds booking creation.
type Rules struct {
	SlotMinutes   int
	PendingExpiry time.Duration
	MaxAdvance    time.Duration // zero disables the look-ahead bound
}

// BookingService wires the calculator to storage, locking and events.
type BookingService struct {
	repo          Repository
	locker        RoomLocker
	bus           EventPublisher
	logger        *zerolog.Logger
	slotMinutes   int
	pendingExpiry time.Duration
	maxAdvance    time.Duration
	now           func() time.Time
}

// NewBookingService creates a booking service. locker may be nil, in which
// case creation skips the cross-process lock (single-instance deployments).
func NewBookingService(repo Repository, locker RoomLocker, bus EventPublisher, logger *zerolog.Logger, rules Rules) *BookingService {
	if rules.SlotMinutes <= 0 {
		rules.SlotMinutes = availability.DefaultSlotMinutes
	}
	return &BookingService{
		repo:          repo,
		locker:        locker,
		bus:           bus,
		logger:        logger,
		slotMinutes:   rules.SlotMinutes,
		pendingExpiry: rules.PendingExpiry,
		maxAdvance:    rules.MaxAdvance,
		now:           time.Now,
	}
}

// roomContext is everything needed to run the calculator for a room/date.
type roomContext struct {
	room     *model.Room
	loc      *time.Location
	window   schedule.Window
	bookings []model.Booking
}

func (s *BookingService) loadRoomContext(ctx context.Context, roomID int64, date time.Time) (*roomContext, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(room.Timezone)
	if err != nil {
		return nil, fmt.Errorf("room %d has malformed timezone %q: %w", room.ID, room.Timezone, err)
	}

	records, err := s.repo.ListOperatingHours(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load operating hours: %w", err)
	}

	bookings, err := s.repo.GetBookingsForDate(ctx, roomID, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	return &roomContext{
		room:     room,
		loc:      loc,
		window:   schedule.Resolve(records, date),
		bookings: bookings,
	}, nil
}

// StartTimes returns the valid booking start times for a room and date.
func (s *BookingService) StartTimes(ctx context.Context, roomID int64, date time.Time) ([]availability.Slot, error) {
	metrics.IncAvailabilityQuery("start")

	rc, err := s.loadRoomContext(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return availability.StartTimes(rc.window, rc.bookings, s.now().In(rc.loc), rc.loc, s.slotMinutes)
}

// EndTimes returns the valid booking end times for a room, date and chosen
// start time ("HH:MM").
func (s *BookingService) EndTimes(ctx context.Context, roomID int64, date time.Time, startClock string) ([]availability.Slot, error) {
	metrics.IncAvailabilityQuery("end")

	start, err := model.ParseClock(startClock)
	if err != nil {
		return nil, err
	}

	rc, err := s.loadRoomContext(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return availability.EndTimes(rc.window, rc.bookings, start, rc.loc, s.slotMinutes)
}

// CreateBookingRequest carries a booking creation request.
type CreateBookingRequest struct {
	RoomID      int64
	UserID      int64
	Date        time.Time
	EndDate     *time.Time // multi-day bookings only
	StartTime   string     // "HH:MM"
	EndTime     string     // "HH:MM"
	ClientName  string
	ClientPhone string
	Comment     string
}

// CreateBooking validates the request against current availability and
// inserts the booking. The availability check is re-run here, under the
// room/date lock, rather than trusting whatever the client saw earlier:
// the snapshot it uses includes every booking committed before the lock
// was granted.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*model.Booking, error) {
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time: %w", err)
	}
	end, err := model.ParseClock(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time: %w", err)
	}
	if req.EndDate == nil && end <= start {
		return nil, fmt.Errorf("end_time must be after start_time: %w", db.ErrNotAvailable)
	}
	if req.EndDate != nil && !req.EndDate.After(req.Date) {
		return nil, fmt.Errorf("end_date must be after date: %w", db.ErrNotAvailable)
	}

	if s.locker != nil {
		lock, err := s.locker.Acquire(ctx, req.RoomID, req.Date)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				s.logger.Error().Err(err).Int64("room_id", req.RoomID).Msg("release booking lock")
			}
		}()
	}

	rc, err := s.loadRoomContext(ctx, req.RoomID, req.Date)
	if err != nil {
		return nil, err
	}

	nowLocal := s.now().In(rc.loc)
	if dateOnly(req.Date).Before(dateOnly(nowLocal)) {
		return nil, db.ErrPastDate
	}
	if s.maxAdvance > 0 && dateOnly(req.Date).After(dateOnly(nowLocal.Add(s.maxAdvance))) {
		return nil, db.ErrDateTooFar
	}

	if req.EndDate == nil {
		err = s.validateSingleDay(rc, req, start, nowLocal)
	} else {
		err = s.validateMultiDay(ctx, rc, req, start, end)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotAvailable) {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	booking := &model.Booking{
		Reference:   uuid.NewString(),
		RoomID:      req.RoomID,
		UserID:      req.UserID,
		Date:        req.Date,
		EndDate:     req.EndDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      model.StatusPending,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Comment:     req.Comment,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated(booking.Status)
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeBookingCreated, booking)
	}

	s.logger.Info().
		Str("reference", booking.Reference).
		Int64("room_id", booking.RoomID).
		Str("date", booking.Date.Format("2006-01-02")).
		Str("start", booking.StartTime).
		Str("end", booking.EndTime).
		Msg("booking created")

	return booking, nil
}

// validateSingleDay re-derives the requested start and end from the
// calculator; both must appear in its output.
func (s *BookingService) validateSingleDay(rc *roomContext, req CreateBookingRequest, start int, nowLocal time.Time) error {
	starts, err := availability.StartTimes(rc.window, rc.bookings, nowLocal, rc.loc, s.slotMinutes)
	if err != nil {
		return err
	}
	if !containsTime(starts, req.StartTime) {
		return fmt.Errorf("start %s on %s: %w", req.StartTime, req.Date.Format("2006-01-02"), db.ErrNotAvailable)
	}

	ends, err := availability.EndTimes(rc.window, rc.bookings, start, rc.loc, s.slotMinutes)
	if err != nil {
		return err
	}
	if !containsTime(ends, req.EndTime) {
		return fmt.Errorf("end %s on %s: %w", req.EndTime, req.Date.Format("2006-01-02"), db.ErrNotAvailable)
	}
	return nil
}

// validateMultiDay handles bookings that cross midnight. Only always-open
// rooms accept them: fixed and variable windows are same-day by contract,
// so a booking that spans days cannot fit inside them. Each covered date is
// conflict-checked against its own booking snapshot.
func (s *BookingService) validateMultiDay(ctx context.Context, rc *roomContext, req CreateBookingRequest, start, end int) error {
	if rc.window.Closed || rc.window.Open != 0 || rc.window.Close != model.MinutesPerDay {
		return fmt.Errorf("multi-day bookings require an always-open room: %w", db.ErrNotAvailable)
	}

	candidate := model.Booking{
		Date:      req.Date,
		EndDate:   req.EndDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    model.StatusPending,
	}

	for day := dateOnly(req.Date); !day.After(dateOnly(*req.EndDate)); day = day.AddDate(0, 0, 1) {
		bookings := rc.bookings
		if !model.SameDate(day, req.Date) {
			var err error
			bookings, err = s.repo.GetBookingsForDate(ctx, req.RoomID, day)
			if err != nil {
				return fmt.Errorf("load bookings for %s: %w", day.Format("2006-01-02"), err)
			}
		}

		from, to, ok := candidate.OccupiedOn(day)
		if !ok {
			continue
		}
		if availability.HasConflict(bookings, day, from, to) {
			return fmt.Errorf("conflict on %s: %w", day.Format("2006-01-02"), db.ErrNotAvailable)
		}
	}
	return nil
}

// CancelBooking cancels a booking by its external reference, with an
// optimistic version check against concurrent updates.
func (s *BookingService) CancelBooking(ctx context.Context, reference string) (*model.Booking, error) {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !booking.IsActive() {
		return nil, fmt.Errorf("booking %s is already %s: %w", reference, booking.Status, db.ErrNotAvailable)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, model.StatusCancelled); err != nil {
		return nil, err
	}
	booking.Status = model.StatusCancelled
	booking.Version++

	metrics.IncBookingCancelled()
	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeBookingCancelled, booking)
	}

	s.logger.Info().Str("reference", reference).Msg("booking cancelled")
	return booking, nil
}

// RunExpirySweep periodically marks stale pending bookings as expired so
// they stop blocking availability.
func (s *BookingService) RunExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.ExpireStaleBookings(ctx, s.pendingExpiry)
			if err != nil {
				s.logger.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if n > 0 {
				metrics.AddBookingsExpired(n)
				if s.bus != nil {
					_ = s.bus.PublishJSON(events.TypeBookingExpired, map[string]int64{"count": n})
				}
				s.logger.Info().Int64("count", n).Msg("expired stale pending bookings")
			}
		}
	}
}

func containsTime(slots []availability.Slot, clock string) bool {
	for _, s := range slots {
		if s.Time == clock {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
