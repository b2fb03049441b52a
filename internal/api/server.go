package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"studiobook/internal/availability"
	"studiobook/internal/model"
	"studiobook/internal/service"
)

// BookingAPI is the service surface the HTTP layer exposes.
type BookingAPI interface {
	StartTimes(ctx context.Context, roomID int64, date time.Time) ([]availability.Slot, error)
	EndTimes(ctx context.Context, roomID int64, date time.Time, startClock string) ([]availability.Slot, error)
	CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*model.Booking, error)
	CancelBooking(ctx context.Context, reference string) (*model.Booking, error)
}

// HTTPServer serves the booking and availability API.
type HTTPServer struct {
	svc     BookingAPI
	apiKeys map[string]bool
	logger  *zerolog.Logger
	server  *http.Server
}

// NewHTTPServer creates the API server. Requests must present one of the
// configured keys in the x-api-key header; an empty key set disables auth
// (local development).
func NewHTTPServer(svc BookingAPI, apiKeys []string, port int, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:     svc,
		apiKeys: make(map[string]bool, len(apiKeys)),
		logger:  logger,
	}
	for _, key := range apiKeys {
		if key != "" {
			s.apiKeys[key] = true
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/rooms/{id}/start-times", s.withAuth(s.handleStartTimes))
	mux.HandleFunc("/api/v1/rooms/{id}/end-times", s.withAuth(s.handleEndTimes))
	mux.HandleFunc("/api/v1/bookings", s.withAuth(s.handleCreateBooking))
	mux.HandleFunc("/api/v1/bookings/{reference}/cancel", s.withAuth(s.handleCancelBooking))
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiKeys) > 0 {
			key := r.Header.Get("x-api-key")
			if key == "" || !s.apiKeys[key] {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
		}
		next(w, r)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
