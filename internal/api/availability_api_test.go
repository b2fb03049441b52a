package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studiobook/internal/availability"
	"studiobook/internal/db"
	"studiobook/internal/model"
	"studiobook/internal/service"
)

const testAPIKey = "valid-key"

type errorResponse struct {
	Error string `json:"error"`
}

// fakeService implements BookingAPI with canned responses.
type fakeService struct {
	startSlots []availability.Slot
	endSlots   []availability.Slot
	booking    *model.Booking
	err        error
}

func (f *fakeService) StartTimes(ctx context.Context, roomID int64, date time.Time) ([]availability.Slot, error) {
	return f.startSlots, f.err
}

func (f *fakeService) EndTimes(ctx context.Context, roomID int64, date time.Time, start string) ([]availability.Slot, error) {
	return f.endSlots, f.err
}

func (f *fakeService) CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*model.Booking, error) {
	return f.booking, f.err
}

func (f *fakeService) CancelBooking(ctx context.Context, reference string) (*model.Booking, error) {
	return f.booking, f.err
}

var testLogger = zerolog.New(io.Discard)

func newTestServer(svc BookingAPI) *HTTPServer {
	return NewHTTPServer(svc, []string{testAPIKey}, 0, &testLogger)
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body interface{}, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(&fakeService{})

	tests := []struct {
		name       string
		apiKey     string
		wantStatus int
	}{
		{name: "valid key", apiKey: testAPIKey, wantStatus: http.StatusOK},
		{name: "missing key", apiKey: "", wantStatus: http.StatusUnauthorized},
		{name: "invalid key", apiKey: "wrong", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/rooms/1/start-times?date=2026-03-02", nil, tt.apiKey)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleStartTimes_Validation(t *testing.T) {
	srv := newTestServer(&fakeService{})

	tests := []struct {
		name      string
		target    string
		wantError string
	}{
		{
			name:      "missing date",
			target:    "/api/v1/rooms/1/start-times",
			wantError: "date is required",
		},
		{
			name:      "bad date format",
			target:    "/api/v1/rooms/1/start-times?date=02-03-2026",
			wantError: "invalid date format; expected YYYY-MM-DD",
		},
		{
			name:      "bad room id",
			target:    "/api/v1/rooms/zero/start-times?date=2026-03-02",
			wantError: "invalid room id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv.Handler(), http.MethodGet, tt.target, nil, testAPIKey)
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

func TestHandleStartTimes_ResponseShape(t *testing.T) {
	srv := newTestServer(&fakeService{
		startSlots: []availability.Slot{
			{Time: "10:00", ISOString: "2025-10-31T10:00:00+01:00"},
			{Time: "11:00", ISOString: "2025-10-31T11:00:00+01:00"},
		},
	})

	w := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/rooms/1/start-times?date=2025-10-31", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp AvailableTimesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.AvailableTimes) != 2 {
		t.Fatalf("got %d slots, want 2", len(resp.AvailableTimes))
	}
	if resp.AvailableTimes[0].Time != "10:00" {
		t.Errorf("first slot = %q, want 10:00", resp.AvailableTimes[0].Time)
	}
	if resp.AvailableTimes[0].ISOString != "2025-10-31T10:00:00+01:00" {
		t.Errorf("iso_string = %q", resp.AvailableTimes[0].ISOString)
	}
}

func TestHandleStartTimes_EmptyIsArray(t *testing.T) {
	srv := newTestServer(&fakeService{})

	w := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/rooms/1/start-times?date=2026-03-02", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := w.Body.String()
	if body == "" || bytes.Contains([]byte(body), []byte("null")) {
		t.Errorf("empty availability must render as [], got %s", body)
	}
}

func TestHandleStartTimes_RoomNotFound(t *testing.T) {
	srv := newTestServer(&fakeService{err: db.ErrRoomNotFound})

	w := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/rooms/99/start-times?date=2026-03-02", nil, testAPIKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleEndTimes_Validation(t *testing.T) {
	srv := newTestServer(&fakeService{})

	tests := []struct {
		name      string
		target    string
		wantError string
	}{
		{
			name:      "missing start",
			target:    "/api/v1/rooms/1/end-times?date=2026-03-02",
			wantError: "start is required",
		},
		{
			name:      "bad start format",
			target:    "/api/v1/rooms/1/end-times?date=2026-03-02&start=ten",
			wantError: "invalid start format; expected HH:MM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv.Handler(), http.MethodGet, tt.target, nil, testAPIKey)
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

func TestHandleEndTimes_OK(t *testing.T) {
	srv := newTestServer(&fakeService{
		endSlots: []availability.Slot{{Time: "12:00", ISOString: "2026-03-02T12:00:00Z"}},
	})

	w := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/rooms/1/end-times?date=2026-03-02&start=11:00", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp AvailableTimesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.AvailableTimes) != 1 || resp.AvailableTimes[0].Time != "12:00" {
		t.Errorf("unexpected slots: %+v", resp.AvailableTimes)
	}
}
