package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"schemasync/internal/db"
	"schemasync/internal/introspect"
)

// pgExtractor implements Extractor using information_schema + pg_catalog queries.
type pgExtractor struct{}

func (pgExtractor) Tables(ctx context.Context, dbConn *sql.DB, schema string) ([]string, error) {
	return queryStrings(ctx, dbConn, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE' AND table_schema = $1
        ORDER BY table_name`, schema)
}

func (pgExtractor) Columns(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT a.attname, format_type(a.atttypid, a.atttypmod), NOT a.attnotnull, pg_get_expr(d.adbin, d.adrelid)
        FROM pg_attribute a
        JOIN pg_class c ON a.attrelid = c.oid
        JOIN pg_namespace ns ON c.relnamespace = ns.oid
        LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
        WHERE ns.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
        ORDER BY a.attnum`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	defer cr.Close()

	var cols []introspect.Column
	for cr.Next() {
		var col introspect.Column
		var dflt sql.NullString
		if err := cr.Scan(&col.Name, &col.Type, &col.Nullable, &dflt); err != nil {
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, table, err)
		}
		col.Default = nullableDefault(dflt)
		cols = append(cols, col)
	}
	return cols, cr.Err()
}

func (pgExtractor) Indexes(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Index, error) {
	ir, err := dbConn.QueryContext(ctx, `
        SELECT i.relname, ix.indisunique
        FROM pg_index ix
        JOIN pg_class i ON i.oid = ix.indexrelid
        JOIN pg_class c ON c.oid = ix.indrelid
        JOIN pg_namespace ns ON c.relnamespace = ns.oid
        WHERE ns.nspname = $1 AND c.relname = $2
        ORDER BY i.relname`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, table, err)
	}
	defer ir.Close()

	var idx []introspect.Index
	for ir.Next() {
		var i introspect.Index
		if err := ir.Scan(&i.Name, &i.Unique); err != nil {
			return nil, fmt.Errorf("scan index for %s.%s: %w", schema, table, err)
		}
		idx = append(idx, i)
	}
	return idx, ir.Err()
}

// PostgreSQL has no per-table charset or collation.
func (pgExtractor) TableOptions(ctx context.Context, dbConn *sql.DB, schema, table string) (introspect.TableOptions, error) {
	return nil, nil
}

func init() {
	db.Register("postgres", pgExtractor{})
	db.Register("postgresql", pgExtractor{})
}
