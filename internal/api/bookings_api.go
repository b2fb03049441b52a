package api

import (
	"encoding/json"
	"net/http"
	"time"

	"studiobook/internal/metrics"
	"studiobook/internal/model"
	"studiobook/internal/service"
)

// CreateBookingRequest is the request body for POST /api/v1/bookings.
type CreateBookingRequest struct {
	RoomID      int64  `json:"room_id"`
	UserID      int64  `json:"user_id"`
	Date        string `json:"date"`               // YYYY-MM-DD
	EndDate     string `json:"end_date,omitempty"` // YYYY-MM-DD, multi-day only
	StartTime   string `json:"start_time"`         // HH:MM
	EndTime     string `json:"end_time"`           // HH:MM
	ClientName  string `json:"client_name,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// BookingResponse is the response for booking mutations.
type BookingResponse struct {
	Success bool           `json:"success"`
	Booking *model.Booking `json:"booking,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// handleCreateBooking creates a booking.
// POST /api/v1/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}
	if req.Date == "" || req.StartTime == "" || req.EndTime == "" {
		writeError(w, http.StatusBadRequest, "date, start_time and end_time are required")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	var endDate *time.Time
	if req.EndDate != "" {
		d, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format; expected YYYY-MM-DD")
			return
		}
		endDate = &d
	}

	if _, err := model.ParseClock(req.StartTime); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time format; expected HH:MM")
		return
	}
	if _, err := model.ParseClock(req.EndTime); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time format; expected HH:MM")
		return
	}

	booking, err := s.svc.CreateBooking(r.Context(), service.CreateBookingRequest{
		RoomID:      req.RoomID,
		UserID:      req.UserID,
		Date:        date,
		EndDate:     endDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Comment:     req.Comment,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BookingResponse{Success: true, Booking: booking})
}

// handleCancelBooking cancels a booking by reference.
// POST /api/v1/bookings/{reference}/cancel
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	reference := r.PathValue("reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "booking reference is required")
		return
	}

	booking, err := s.svc.CancelBooking(r.Context(), reference)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BookingResponse{Success: true, Booking: booking})
}
