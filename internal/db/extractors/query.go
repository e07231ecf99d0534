package extractors

import (
	"context"
	"database/sql"
	"fmt"
)

// queryStrings runs a query returning a single string column.
func queryStrings(ctx context.Context, dbConn *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := dbConn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// nullableDefault converts a scanned default into the optional form used by introspect.Column.
func nullableDefault(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
