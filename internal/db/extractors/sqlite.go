package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"schemasync/internal/db"
	"schemasync/internal/introspect"
)

// sqliteExtractor implements Extractor for SQLite. Each schema is its own
// database file, so the schema argument only labels errors.
type sqliteExtractor struct{}

func (sqliteExtractor) Tables(ctx context.Context, dbConn *sql.DB, schema string) ([]string, error) {
	return queryStrings(ctx, dbConn, `
        SELECT name
        FROM sqlite_master
        WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
        ORDER BY name`)
}

func (sqliteExtractor) Columns(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Column, error) {
	pr, err := dbConn.QueryContext(ctx, `
        SELECT name, type, "notnull", dflt_value
        FROM pragma_table_info(?)
        ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	defer pr.Close()

	var cols []introspect.Column
	for pr.Next() {
		var col introspect.Column
		var notnull int
		var dflt sql.NullString
		if err := pr.Scan(&col.Name, &col.Type, &notnull, &dflt); err != nil {
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, table, err)
		}
		col.Nullable = notnull == 0
		col.Default = nullableDefault(dflt)
		cols = append(cols, col)
	}
	return cols, pr.Err()
}

func (sqliteExtractor) Indexes(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Index, error) {
	ir, err := dbConn.QueryContext(ctx, `
        SELECT name, "unique"
        FROM pragma_index_list(?)
        ORDER BY name`, table)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, table, err)
	}
	defer ir.Close()

	var idx []introspect.Index
	for ir.Next() {
		var i introspect.Index
		var unique int
		if err := ir.Scan(&i.Name, &unique); err != nil {
			return nil, fmt.Errorf("scan index for %s.%s: %w", schema, table, err)
		}
		i.Unique = unique != 0
		idx = append(idx, i)
	}
	return idx, ir.Err()
}

func (sqliteExtractor) TableOptions(ctx context.Context, dbConn *sql.DB, schema, table string) (introspect.TableOptions, error) {
	return nil, nil
}

// Schemas lists the attached databases, normally just main.
func (sqliteExtractor) Schemas(ctx context.Context, dbConn *sql.DB) ([]string, error) {
	return queryStrings(ctx, dbConn, `SELECT name FROM pragma_database_list ORDER BY seq`)
}

func (sqliteExtractor) CreateTable(ctx context.Context, dbConn *sql.DB, schema, table string) (string, error) {
	var stmt string
	err := dbConn.QueryRowContext(ctx, `
        SELECT sql
        FROM sqlite_master
        WHERE type = 'table' AND name = ?`, table).Scan(&stmt)
	if err != nil {
		return "", fmt.Errorf("create statement for %s.%s: %w", schema, table, err)
	}
	return stmt, nil
}

func init() {
	db.Register("sqlite3", sqliteExtractor{})
	db.Register("sqlite", sqliteExtractor{})
}
