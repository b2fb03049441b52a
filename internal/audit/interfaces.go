package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to database tables for export.
type TableExporter interface {
	// GetTableNames returns list of table names to export.
	GetTableNames(ctx context.Context) ([]string, error)

	// GetTableData returns rows for a table as maps.
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)

	// GetDB returns underlying sql.DB for custom queries.
	GetDB() *sql.DB
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to the current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to the current sheet.
	WriteRow(row []interface{}) error

	// Save writes the Excel file to the writer.
	Save(w io.Writer) error

	// SaveToFile writes the Excel file to disk.
	SaveToFile(path string) error
}

// Notifier delivers audit reports to managers.
type Notifier interface {
	// SendDocument sends a document to managers.
	SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error
}

// DataCleaner removes expired data after it has been exported.
type DataCleaner interface {
	// DeleteOldBookings deletes bookings older than duration. Returns
	// the number of rows removed.
	DeleteOldBookings(ctx context.Context, olderThan time.Duration) (int64, error)
}

// GenerateFilename creates a report filename like "January_2026.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("%s_%d.xlsx", t.Month().String(), t.Year())
}

// GenerateFilenameForPreviousMonth creates the filename for the month
// that just closed.
func GenerateFilenameForPreviousMonth() string {
	now := time.Now()
	return GenerateFilename(now.AddDate(0, -1, 0))
}
