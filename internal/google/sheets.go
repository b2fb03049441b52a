package google

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"studiobook/internal/model"
)

const (
	bookingsSheet = "Bookings"
	scheduleSheet = "Schedule"
)

var bookingHeaders = []interface{}{
	"ID", "Reference", "Room ID", "User ID", "Date", "End Date",
	"Start", "End", "Status", "Client", "Phone", "Created", "Updated",
}

// SheetsService mirrors bookings into a Google spreadsheet so studio
// managers can watch the calendar without touching the database.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger

	// rowCache maps booking ID to its row on the bookings sheet so
	// updates rewrite in place instead of appending duplicates.
	mu       sync.RWMutex
	rowCache map[int64]int
}

// NewSheetsService builds a client from a service-account key file.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}, nil
}

// SyncBookings rewrites the bookings sheet from scratch: header row
// followed by every active booking. Simpler than diffing and safe to
// run on a timer.
func (s *SheetsService) SyncBookings(ctx context.Context, bookings []model.Booking) error {
	active := s.filterActiveBookings(bookings)

	values := make([][]interface{}, 0, len(active)+1)
	values = append(values, bookingHeaders)
	for i := range active {
		values = append(values, bookingRowValues(&active[i]))
	}

	clearReq := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, bookingsSheet, &sheets.ClearValuesRequest{})
	if _, err := clearReq.Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear bookings sheet: %w", err)
	}

	vr := &sheets.ValueRange{Values: values}
	update := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, bookingsSheet+"!A1", vr).
		ValueInputOption("RAW")
	if _, err := update.Context(ctx).Do(); err != nil {
		return fmt.Errorf("write bookings sheet: %w", err)
	}

	s.mu.Lock()
	s.rowCache = make(map[int64]int, len(active))
	for i := range active {
		s.rowCache[active[i].ID] = i + 2 // row 1 is the header
	}
	s.mu.Unlock()

	s.logger.Debug().Int("bookings", len(active)).Msg("Synced bookings sheet")
	return nil
}

// UpsertBooking writes a single booking, updating its existing row when
// the cache knows it, appending otherwise.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *model.Booking) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(booking)}}

	if row, ok := s.getCachedRow(booking.ID); ok {
		rangeRef := fmt.Sprintf("%s!A%d", bookingsSheet, row)
		update := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rangeRef, vr).
			ValueInputOption("RAW")
		if _, err := update.Context(ctx).Do(); err != nil {
			return fmt.Errorf("update booking row: %w", err)
		}
		return nil
	}

	appendCall := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS")
	resp, err := appendCall.Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if row, ok := parseRowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

// UpdateScheduleSheet renders a rooms-by-dates occupancy grid covering
// the given range.
func (s *SheetsService) UpdateScheduleSheet(ctx context.Context, rooms []model.Room, bookings []model.Booking, startDate, endDate time.Time) error {
	headers, days := s.prepareDateHeaders(startDate, endDate)

	byRoomDay := make(map[int64]map[string][]model.Booking)
	for _, b := range s.filterActiveBookings(bookings) {
		if byRoomDay[b.RoomID] == nil {
			byRoomDay[b.RoomID] = make(map[string][]model.Booking)
		}
		for d := 0; d < days; d++ {
			day := startDate.AddDate(0, 0, d)
			if b.CoversDate(day) {
				key := day.Format("2006-01-02")
				byRoomDay[b.RoomID][key] = append(byRoomDay[b.RoomID][key], b)
			}
		}
	}

	values := make([][]interface{}, 0, len(rooms)+1)
	values = append(values, headers)
	for _, room := range rooms {
		row := make([]interface{}, 0, days+1)
		row = append(row, room.Name)
		for d := 0; d < days; d++ {
			day := startDate.AddDate(0, 0, d)
			cell := s.formatScheduleCell(room, byRoomDay[room.ID][day.Format("2006-01-02")])
			row = append(row, cell)
		}
		values = append(values, row)
	}

	clearReq := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, scheduleSheet, &sheets.ClearValuesRequest{})
	if _, err := clearReq.Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear schedule sheet: %w", err)
	}

	vr := &sheets.ValueRange{Values: values}
	update := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, scheduleSheet+"!A1", vr).
		ValueInputOption("RAW")
	if _, err := update.Context(ctx).Do(); err != nil {
		return fmt.Errorf("write schedule sheet: %w", err)
	}

	s.logger.Debug().Int("rooms", len(rooms)).Int("days", days).Msg("Updated schedule sheet")
	return nil
}

// filterActiveBookings drops cancelled and expired bookings.
func (s *SheetsService) filterActiveBookings(bookings []model.Booking) []model.Booking {
	active := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	return active
}

// prepareDateHeaders builds the schedule header row: a leading room
// column followed by one "DD.MM" column per day, inclusive.
func (s *SheetsService) prepareDateHeaders(startDate, endDate time.Time) ([]interface{}, int) {
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	headers := make([]interface{}, 0, days+1)
	headers = append(headers, "Room")
	for d := 0; d < days; d++ {
		headers = append(headers, startDate.AddDate(0, 0, d).Format("02.01"))
	}
	return headers, days
}

// formatScheduleCell summarizes a day's bookings for one room.
func (s *SheetsService) formatScheduleCell(room model.Room, dayBookings []model.Booking) string {
	if len(dayBookings) == 0 {
		return "free"
	}
	cell := ""
	for i, b := range dayBookings {
		if i > 0 {
			cell += "\n"
		}
		cell += fmt.Sprintf("%s-%s %s", b.StartTime, b.EndTime, b.ClientName)
	}
	return cell
}

func bookingRowValues(b *model.Booking) []interface{} {
	endDate := ""
	if b.EndDate != nil {
		endDate = b.EndDate.Format("2006-01-02")
	}
	return []interface{}{
		b.ID,
		b.Reference,
		b.RoomID,
		b.UserID,
		b.Date.Format("2006-01-02"),
		endDate,
		b.StartTime,
		b.EndTime,
		b.Status,
		b.ClientName,
		b.ClientPhone,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// parseRowFromRange extracts the row number from a range reference like
// "Bookings!A42:M42".
func parseRowFromRange(ref string) (int, bool) {
	row := 0
	seen := false
	for _, r := range ref {
		if r >= '0' && r <= '9' {
			row = row*10 + int(r-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	return row, seen
}

func (s *SheetsService) getCachedRow(bookingID int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rowCache[bookingID]
	return row, ok
}

func (s *SheetsService) setCachedRow(bookingID int64, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[bookingID] = row
}

func (s *SheetsService) deleteCacheRow(bookingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, bookingID)
}

// ClearCache drops the row cache, forcing the next upsert to append.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[int64]int)
}
