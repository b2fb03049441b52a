package db

import (
	"context"
	"database/sql"
	"fmt"
)

// exportTables are the tables included in audit exports, in sheet order.
var exportTables = []string{"bookings", "rooms", "operating_hours"}

// GetTableNames returns the tables included in audit exports.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return append([]string(nil), exportTables...), nil
}

// GetTableData returns all rows of a table as maps plus the column order.
func (db *DB) GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error) {
	allowed := false
	for _, t := range exportTables {
		if t == tableName {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil, fmt.Errorf("table %q is not exportable", tableName)
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var data []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if bs, ok := values[i].([]byte); ok {
				row[col] = string(bs)
			} else {
				row[col] = values[i]
			}
		}
		data = append(data, row)
	}
	return data, columns, rows.Err()
}

// GetDB exposes the underlying connection for custom export queries.
func (db *DB) GetDB() *sql.DB {
	return db.DB
}
