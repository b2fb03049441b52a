package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"studiobook/internal/model"
)

// Config holds configuration for the reminder service.
type Config struct {
	// CheckInterval is how often to scan for upcoming bookings.
	// Default: 15 minutes.
	CheckInterval time.Duration

	// HoursBefore is how far ahead of a booking's start the reminder is
	// sent. Default: 24 hours.
	HoursBefore int

	// SendRate limits notification sends per second. Default: 20.
	SendRate float64

	// SendBurst is the limiter burst. Default: 30.
	SendBurst int

	// RetryDelays are the backoff waits between failed send attempts; the
	// attempt count is len(RetryDelays)+1.
	RetryDelays []time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval: 15 * time.Minute,
		HoursBefore:   24,
		SendRate:      20,
		SendBurst:     30,
		RetryDelays:   []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Service scans for upcoming bookings and sends reminders through the
// notifier, rate-limited so a large day's worth of bookings doesn't hit
// Telegram's limits.
type Service struct {
	config   *Config
	bookings BookingStore
	rooms    RoomStore
	notifier Notifier
	limiter  *rate.Limiter
	metrics  *Metrics
	logger   *zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewService creates a new reminder service. metrics may be nil.
func NewService(config *Config, bookings BookingStore, rooms RoomStore, notifier Notifier, metrics *Metrics, logger *zerolog.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 15 * time.Minute
	}
	if config.HoursBefore <= 0 {
		config.HoursBefore = 24
	}
	if config.SendRate <= 0 {
		config.SendRate = 20
	}
	if config.SendBurst <= 0 {
		config.SendBurst = 30
	}

	return &Service{
		config:   config,
		bookings: bookings,
		rooms:    rooms,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(config.SendRate), config.SendBurst),
		metrics:  metrics,
		logger:   logger,
	}
}

// Start begins the periodic reminder scan. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.CheckInterval)
		defer ticker.Stop()

		s.logger.Info().
			Dur("interval", s.config.CheckInterval).
			Int("hours_before", s.config.HoursBefore).
			Msg("Reminder service started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.ProcessDueReminders(ctx); err != nil {
					s.logger.Error().Err(err).Msg("reminder scan failed")
				}
			}
		}
	}()
}

// Stop halts the scan loop and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

// ProcessDueReminders sends a reminder for every active booking starting
// within the configured lead time. Exported so a scan can be forced in
// tests and admin tooling.
func (s *Service) ProcessDueReminders(ctx context.Context) error {
	within := time.Duration(s.config.HoursBefore) * time.Hour

	bookings, err := s.bookings.GetUpcomingBookings(ctx, within)
	if err != nil {
		return fmt.Errorf("fetch upcoming bookings: %w", err)
	}

	now := time.Now()
	for _, booking := range bookings {
		room, err := s.rooms.GetRoom(ctx, booking.RoomID)
		if err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("resolve room for reminder")
			continue
		}

		start, err := bookingStart(booking, room.Timezone)
		if err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("compute booking start")
			continue
		}

		// Already started or further out than the lead time: skip, the
		// next scan will pick it up when it is due.
		if start.Before(now) || start.Sub(now) > within {
			continue
		}

		if err := s.send(ctx, booking, room); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("send reminder")
			continue
		}

		if err := s.bookings.MarkReminderSent(ctx, booking.ID); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("mark reminder sent")
		}
	}
	return nil
}

// send delivers one reminder, retrying transient failures with backoff.
func (s *Service) send(ctx context.Context, booking model.Booking, room *model.Room) error {
	if !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.RateLimitWaits.Inc()
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	started := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		err = s.notifier.SendReminder(ctx, booking, room)
		if err == nil || attempt >= len(s.config.RetryDelays) {
			break
		}

		if s.metrics != nil {
			s.metrics.Retries.Inc()
		}
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int64("booking_id", booking.ID).
			Msg("reminder send failed, retrying")

		select {
		case <-time.After(s.config.RetryDelays[attempt]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.metrics != nil {
		s.metrics.ReminderSendDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			s.metrics.RemindersSentTotal.WithLabelValues("failed").Inc()
		} else {
			s.metrics.RemindersSentTotal.WithLabelValues("sent").Inc()
		}
	}
	return err
}

// bookingStart computes the booking's start instant in the room's zone.
func bookingStart(b model.Booking, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	minutes, err := model.ParseClock(b.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}
