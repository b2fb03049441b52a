package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"studiobook/internal/db"
	"studiobook/internal/model"
)

func TestHandleCreateBooking_Validation(t *testing.T) {
	srv := newTestServer(&fakeService{})

	tests := []struct {
		name      string
		body      interface{}
		wantError string
	}{
		{
			name:      "invalid JSON",
			body:      "not json",
			wantError: "invalid JSON body",
		},
		{
			name:      "missing room id",
			body:      map[string]interface{}{"date": "2026-03-02", "start_time": "10:00", "end_time": "11:00"},
			wantError: "room_id is required",
		},
		{
			name:      "missing times",
			body:      map[string]interface{}{"room_id": 1, "date": "2026-03-02"},
			wantError: "date, start_time and end_time are required",
		},
		{
			name:      "bad date",
			body:      map[string]interface{}{"room_id": 1, "date": "02.03.2026", "start_time": "10:00", "end_time": "11:00"},
			wantError: "invalid date format; expected YYYY-MM-DD",
		},
		{
			name:      "bad end_date",
			body:      map[string]interface{}{"room_id": 1, "date": "2026-03-02", "end_date": "bad", "start_time": "10:00", "end_time": "11:00"},
			wantError: "invalid end_date format; expected YYYY-MM-DD",
		},
		{
			name:      "bad start_time",
			body:      map[string]interface{}{"room_id": 1, "date": "2026-03-02", "start_time": "10am", "end_time": "11:00"},
			wantError: "invalid start_time format; expected HH:MM",
		},
		{
			name:      "unknown field",
			body:      map[string]interface{}{"room_id": 1, "date": "2026-03-02", "start_time": "10:00", "end_time": "11:00", "surprise": true},
			wantError: "invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/bookings", tt.body, testAPIKey)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}

			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestHandleCreateBooking_Success(t *testing.T) {
	booking := &model.Booking{
		ID:        1,
		Reference: "ref-123",
		RoomID:    1,
		Status:    model.StatusPending,
		StartTime: "10:00",
		EndTime:   "12:00",
	}
	srv := newTestServer(&fakeService{booking: booking})

	body := map[string]interface{}{
		"room_id":    1,
		"user_id":    42,
		"date":       "2026-03-02",
		"start_time": "10:00",
		"end_time":   "12:00",
	}
	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/bookings", body, testAPIKey)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp BookingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Booking == nil || resp.Booking.Reference != "ref-123" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleCreateBooking_Conflict(t *testing.T) {
	srv := newTestServer(&fakeService{err: db.ErrNotAvailable})

	body := map[string]interface{}{
		"room_id":    1,
		"date":       "2026-03-02",
		"start_time": "10:00",
		"end_time":   "12:00",
	}
	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/bookings", body, testAPIKey)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestHandleCreateBooking_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeService{})

	w := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/bookings", nil, testAPIKey)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleCancelBooking(t *testing.T) {
	booking := &model.Booking{ID: 1, Reference: "ref-123", Status: model.StatusCancelled}
	srv := newTestServer(&fakeService{booking: booking})

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/bookings/ref-123/cancel", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp BookingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Booking.Status != model.StatusCancelled {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleCancelBooking_NotFound(t *testing.T) {
	srv := newTestServer(&fakeService{err: db.ErrBookingNotFound})

	w := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/bookings/ref-404/cancel", nil, testAPIKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
