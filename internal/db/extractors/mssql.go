package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"schemasync/internal/db"
	"schemasync/internal/introspect"
)

// mssqlExtractor implements Extractor for Microsoft SQL Server.
type mssqlExtractor struct{}

func (mssqlExtractor) Tables(ctx context.Context, dbConn *sql.DB, schema string) ([]string, error) {
	return queryStrings(ctx, dbConn, `
        SELECT TABLE_NAME
        FROM INFORMATION_SCHEMA.TABLES
        WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = @schema
        ORDER BY TABLE_NAME`, sql.Named("schema", schema))
}

func (mssqlExtractor) Columns(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT COLUMN_NAME,
               DATA_TYPE + CASE
                   WHEN CHARACTER_MAXIMUM_LENGTH = -1 THEN '(max)'
                   WHEN CHARACTER_MAXIMUM_LENGTH IS NOT NULL THEN '(' + CAST(CHARACTER_MAXIMUM_LENGTH AS varchar(10)) + ')'
                   WHEN DATA_TYPE IN ('decimal', 'numeric') THEN '(' + CAST(NUMERIC_PRECISION AS varchar(10)) + ',' + CAST(NUMERIC_SCALE AS varchar(10)) + ')'
                   ELSE '' END,
               CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END,
               COLUMN_DEFAULT
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_SCHEMA = @schema AND TABLE_NAME = @table
        ORDER BY ORDINAL_POSITION`, sql.Named("schema", schema), sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	defer cr.Close()

	var cols []introspect.Column
	for cr.Next() {
		var col introspect.Column
		var nullableInt int
		var dflt sql.NullString
		if err := cr.Scan(&col.Name, &col.Type, &nullableInt, &dflt); err != nil {
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, table, err)
		}
		col.Nullable = nullableInt == 1
		col.Default = nullableDefault(dflt)
		cols = append(cols, col)
	}
	return cols, cr.Err()
}

func (mssqlExtractor) Indexes(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Index, error) {
	ir, err := dbConn.QueryContext(ctx, `
        SELECT i.name, i.is_unique
        FROM sys.indexes i
        JOIN sys.tables t ON i.object_id = t.object_id
        JOIN sys.schemas s ON t.schema_id = s.schema_id
        WHERE s.name = @schema AND t.name = @table AND i.name IS NOT NULL
        ORDER BY i.name`, sql.Named("schema", schema), sql.Named("table", table))
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

// Collation lives on columns and the database in SQL Server, not on tables.
func (mssqlExtractor) TableOptions(ctx context.Context, dbConn *sql.DB, schema, table string) (introspect.TableOptions, error) {
	return nil, nil
}

func init() {
	db.Register("sqlserver", mssqlExtractor{})
	db.Register("mssql", mssqlExtractor{})
}
