package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"studiobook/internal/availability"
	"studiobook/internal/db"
	"studiobook/internal/locker"
	"studiobook/internal/metrics"
	"studiobook/internal/model"
)

// AvailableTimesResponse is the wire shape for both availability endpoints.
type AvailableTimesResponse struct {
	AvailableTimes []availability.Slot `json:"available_times"`
}

// handleStartTimes returns valid booking start times for a room and date.
// GET /api/v1/rooms/{id}/start-times?date=YYYY-MM-DD
func (s *HTTPServer) handleStartTimes(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("start_times")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	roomID, date, ok := s.roomAndDate(w, r)
	if !ok {
		return
	}

	slots, err := s.svc.StartTimes(r.Context(), roomID, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailableTimesResponse{AvailableTimes: emptyIfNil(slots)})
}

// handleEndTimes returns valid booking end times for a room, date and
// chosen start time.
// GET /api/v1/rooms/{id}/end-times?date=YYYY-MM-DD&start=HH:MM
func (s *HTTPServer) handleEndTimes(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("end_times")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	roomID, date, ok := s.roomAndDate(w, r)
	if !ok {
		return
	}

	start := r.URL.Query().Get("start")
	if start == "" {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}
	if _, err := model.ParseClock(start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start format; expected HH:MM")
		return
	}

	slots, err := s.svc.EndTimes(r.Context(), roomID, date, start)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailableTimesResponse{AvailableTimes: emptyIfNil(slots)})
}

func (s *HTTPServer) roomAndDate(w http.ResponseWriter, r *http.Request) (int64, time.Time, bool) {
	roomID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || roomID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return 0, time.Time{}, false
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return 0, time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return 0, time.Time{}, false
	}

	return roomID, date, true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrRoomNotFound), errors.Is(err, db.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrNotAvailable), errors.Is(err, db.ErrPastDate),
		errors.Is(err, db.ErrDateTooFar), errors.Is(err, db.ErrConcurrentModification),
		errors.Is(err, locker.ErrLockHeld):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// emptyIfNil keeps "no availability" rendering as [] rather than null.
func emptyIfNil(slots []availability.Slot) []availability.Slot {
	if slots == nil {
		return []availability.Slot{}
	}
	return slots
}
