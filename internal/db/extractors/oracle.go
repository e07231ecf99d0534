//go:build oracle
// +build oracle

package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/godror/godror"

	"schemasync/internal/db"
	"schemasync/internal/introspect"
)

// oracleExtractor implements Extractor for Oracle. Schemas map to owners.
type oracleExtractor struct{}

func (oracleExtractor) Tables(ctx context.Context, dbConn *sql.DB, schema string) ([]string, error) {
	return queryStrings(ctx, dbConn, `
        SELECT table_name
        FROM all_tables
        WHERE owner = :1
        ORDER BY table_name`, strings.ToUpper(schema))
}

func (oracleExtractor) Columns(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT column_name,
               data_type || CASE
                   WHEN data_type IN ('VARCHAR2', 'NVARCHAR2', 'CHAR', 'NCHAR', 'RAW') THEN '(' || char_length || ')'
                   WHEN data_type = 'NUMBER' AND data_precision IS NOT NULL THEN '(' || data_precision || ',' || nvl(data_scale, 0) || ')'
                   ELSE '' END,
               nullable,
               data_default
        FROM all_tab_columns
        WHERE owner = :1 AND table_name = :2
        ORDER BY column_id`, strings.ToUpper(schema), table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	defer cr.Close()

	var cols []introspect.Column
	for cr.Next() {
		var col introspect.Column
		var nullable string
		var dflt sql.NullString
		if err := cr.Scan(&col.Name, &col.Type, &nullable, &dflt); err != nil {
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, table, err)
		}
		col.Nullable = (nullable == "Y")
		if dflt.Valid {
			dflt.String = strings.TrimSpace(dflt.String)
		}
		col.Default = nullableDefault(dflt)
		cols = append(cols, col)
	}
	return cols, cr.Err()
}

func (oracleExtractor) Indexes(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Index, error) {
	ir, err := dbConn.QueryContext(ctx, `
        SELECT index_name, uniqueness
        FROM all_indexes
        WHERE table_owner = :1 AND table_name = :2
        ORDER BY index_name`, strings.ToUpper(schema), table)
	if err != nil {
		return nil, fmt.Errorf("query indexes for %s.%s: %w", schema, table, err)
	}
	defer ir.Close()

	var idx []introspect.Index
	for ir.Next() {
		var i introspect.Index
		var uniqueness string
		if err := ir.Scan(&i.Name, &uniqueness); err != nil {
			return nil, fmt.Errorf("scan index for %s.%s: %w", schema, table, err)
		}
		i.Unique = uniqueness == "UNIQUE"
		idx = append(idx, i)
	}
	return idx, ir.Err()
}

func (oracleExtractor) TableOptions(ctx context.Context, dbConn *sql.DB, schema, table string) (introspect.TableOptions, error) {
	return nil, nil
}

func init() {
	db.Register("godror", oracleExtractor{})
	db.Register("oracle", oracleExtractor{})
}
