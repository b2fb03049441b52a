package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studiobook/internal/api"
	"studiobook/internal/audit"
	"studiobook/internal/config"
	"studiobook/internal/db"
	"studiobook/internal/events"
	"studiobook/internal/google"
	"studiobook/internal/locker"
	"studiobook/internal/metrics"
	"studiobook/internal/reminders"
	"studiobook/internal/service"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STUDIOBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Room and operating-hours seed with live reload on file change. The
	// watcher applies the file once synchronously, then polls in the
	// background.
	if cfg.Studios.Path != "" {
		err := config.WatchStudios(ctx, cfg.Studios.Path, cfg.StudiosWatchInterval(), func(studios *config.StudiosConfig) {
			if err := applyStudios(ctx, database, studios); err != nil {
				logger.Error().Err(err).Msg("apply studios config")
				return
			}
			logger.Info().Int("rooms", len(studios.Rooms)).Msg("Studios config applied")
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("load studios config")
		}
	}

	var rdb *redis.Client
	var roomLocker service.RoomLocker
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		roomLocker = redisRoomLocker{inner: locker.NewRoomLocker(rdb, 0)}
		logger.Info().Str("addr", cfg.Redis.Address).Msg("Redis room locking enabled")
	}

	bus := events.NewEventBus()
	subscribeEventLogging(bus, &logger)

	svc := service.NewBookingService(database, roomLocker, bus, &logger, service.Rules{
		SlotMinutes:   cfg.SlotMinutes(),
		PendingExpiry: cfg.PendingExpiry(),
		MaxAdvance:    cfg.MaxAdvance(),
	})
	go svc.RunExpirySweep(ctx, time.Minute)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backup := db.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	if cfg.Reminders.Enabled && cfg.Telegram.BotToken != "" {
		notifier, err := reminders.NewTelegramNotifier(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create reminder notifier")
		}
		remCfg := reminders.DefaultConfig()
		if cfg.Reminders.HoursBefore > 0 {
			remCfg.HoursBefore = cfg.Reminders.HoursBefore
		}
		if cfg.Reminders.CheckInterval > 0 {
			remCfg.CheckInterval = time.Duration(cfg.Reminders.CheckInterval) * time.Minute
		}
		var remMetrics *reminders.Metrics
		if cfg.Monitoring.PrometheusEnabled {
			remMetrics = reminders.NewMetrics("studiobook")
		}
		rem := reminders.NewService(remCfg, database, database, notifier, remMetrics, &logger)
		rem.Start(ctx)
		defer rem.Stop()
	}

	if cfg.Audit.Enabled {
		var notifier audit.Notifier
		if cfg.Telegram.BotToken != "" && len(cfg.Managers) > 0 {
			tn, err := audit.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Managers)
			if err != nil {
				logger.Fatal().Err(err).Msg("create audit notifier")
			}
			notifier = tn
		}
		auditCfg := audit.DefaultConfig()
		if cfg.Audit.DataRetentionDays > 0 {
			auditCfg.DataRetentionDays = cfg.Audit.DataRetentionDays
		}
		auditSvc := audit.NewService(auditCfg, database, audit.NewExcelizeWriter, notifier, database, &logger)
		auditSvc.Start()
		defer auditSvc.Stop()
	}

	if cfg.Sheets.Enabled {
		sheetsSvc, err := google.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets service")
		}
		go runSheetsSync(ctx, sheetsSvc, database, &logger)
	}

	server := api.NewHTTPServer(svc, cfg.APIKeyList(), cfg.Server.Port, &logger)
	logger.Info().Int("port", cfg.Server.Port).Msg("Studio booking service started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
}

// redisRoomLocker adapts the concrete Redis locker to the booking
// service's interface.
type redisRoomLocker struct {
	inner *locker.RoomLocker
}

func (l redisRoomLocker) Acquire(ctx context.Context, roomID int64, date time.Time) (service.Unlocker, error) {
	lock, err := l.inner.Acquire(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func applyStudios(ctx context.Context, database *db.DB, studios *config.StudiosConfig) error {
	for _, rc := range studios.Rooms {
		room := rc.Room()
		if err := database.UpsertRoom(ctx, &room); err != nil {
			return fmt.Errorf("upsert room %d: %w", rc.ID, err)
		}
		if err := database.ReplaceOperatingHours(ctx, rc.ID, rc.OperatingHours()); err != nil {
			return fmt.Errorf("replace hours for room %d: %w", rc.ID, err)
		}
	}
	return nil
}

func subscribeEventLogging(bus *events.EventBus, logger *zerolog.Logger) {
	log := func(event events.Event) error {
		logger.Info().
			Str("type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}
	bus.Subscribe(events.TypeBookingCreated, log)
	bus.Subscribe(events.TypeBookingCancelled, log)
	bus.Subscribe(events.TypeBookingExpired, log)
}

// runSheetsSync refreshes the spreadsheet mirror on a fixed cadence: a
// trailing week of history plus two months ahead.
func runSheetsSync(ctx context.Context, sheets *google.SheetsService, database *db.DB, logger *zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	sync := func() {
		start := time.Now().AddDate(0, 0, -7)
		end := time.Now().AddDate(0, 2, 0)

		bookings, err := database.GetBookingsByDateRange(ctx, start, end)
		if err != nil {
			logger.Error().Err(err).Msg("load bookings for sheets sync")
			return
		}
		if err := sheets.SyncBookings(ctx, bookings); err != nil {
			logger.Error().Err(err).Msg("sync bookings sheet")
			return
		}

		rooms, err := database.ListActiveRooms(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("load rooms for sheets sync")
			return
		}
		if err := sheets.UpdateScheduleSheet(ctx, rooms, bookings, time.Now(), time.Now().AddDate(0, 0, 13)); err != nil {
			logger.Error().Err(err).Msg("update schedule sheet")
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
