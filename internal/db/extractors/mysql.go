package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"schemasync/internal/db"
	"schemasync/internal/introspect"
)

// myExtractor implements Extractor for MySQL (information_schema).
type myExtractor struct{}

func (myExtractor) Tables(ctx context.Context, dbConn *sql.DB, schema string) ([]string, error) {
	return queryStrings(ctx, dbConn, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE' AND table_schema = ?
        ORDER BY table_name`, schema)
}

func (myExtractor) Columns(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Column, error) {
	cr, err := dbConn.QueryContext(ctx, `
        SELECT column_name, column_type, data_type, is_nullable = 'YES', column_default, extra
        FROM information_schema.columns
        WHERE table_schema = ? AND table_name = ?
        ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", schema, table, err)
	}
	defer cr.Close()

	var cols []introspect.Column
	for cr.Next() {
		var col introspect.Column
		var dataType, extra string
		var dflt sql.NullString
		if err := cr.Scan(&col.Name, &col.Type, &dataType, &col.Nullable, &dflt, &extra); err != nil {
			return nil, fmt.Errorf("scan column for %s.%s: %w", schema, table, err)
		}
		col.Default = mysqlDefault(dataType, extra, dflt)
		cols = append(cols, col)
	}
	return cols, cr.Err()
}

func (myExtractor) Indexes(ctx context.Context, dbConn *sql.DB, schema, table string) ([]introspect.Index, error) {
	ir, err := dbConn.QueryContext(ctx, `
        SELECT index_name, MIN(non_unique) = 0
        FROM information_schema.statistics
        WHERE table_schema = ? AND table_name = ?
        GROUP BY index_name
        ORDER BY index_name`, schema, table)
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

func (myExtractor) TableOptions(ctx context.Context, dbConn *sql.DB, schema, table string) (introspect.TableOptions, error) {
	var engine, collation, charset sql.NullString
	err := dbConn.QueryRowContext(ctx, `
        SELECT t.engine, t.table_collation, c.character_set_name
        FROM information_schema.tables t
        LEFT JOIN information_schema.collations c ON c.collation_name = t.table_collation
        WHERE t.table_schema = ? AND t.table_name = ?`, schema, table).Scan(&engine, &collation, &charset)
	if err != nil {
		return nil, fmt.Errorf("query table options for %s.%s: %w", schema, table, err)
	}

	opts := introspect.TableOptions{}
	if engine.Valid {
		opts[introspect.OptionEngine] = engine.String
	}
	if charset.Valid {
		opts[introspect.OptionCharset] = charset.String
	}
	if collation.Valid {
		opts[introspect.OptionCollate] = collation.String
	}
	return opts, nil
}

func (myExtractor) Schemas(ctx context.Context, dbConn *sql.DB) ([]string, error) {
	return queryStrings(ctx, dbConn, `SHOW DATABASES`)
}

func (myExtractor) CreateTable(ctx context.Context, dbConn *sql.DB, schema, table string) (string, error) {
	var name, stmt string
	q := fmt.Sprintf("SHOW CREATE TABLE %s.%s", quoteMySQL(schema), quoteMySQL(table))
	if err := dbConn.QueryRowContext(ctx, q).Scan(&name, &stmt); err != nil {
		return "", fmt.Errorf("show create table %s.%s: %w", schema, table, err)
	}
	return stmt, nil
}

// mysqlDefault renders COLUMN_DEFAULT as a literal usable in a DEFAULT clause.
// MySQL 8 reports string defaults unquoted; MariaDB already quotes them and
// reports a NULL default as the word NULL. An empty string default becomes ''.
func mysqlDefault(dataType, extra string, v sql.NullString) *string {
	if !v.Valid || v.String == "NULL" {
		return nil
	}
	s := v.String
	switch {
	case strings.HasPrefix(s, "'"), strings.HasPrefix(strings.ToUpper(s), "CURRENT_TIMESTAMP"):
	case strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED"):
		if !strings.HasPrefix(s, "(") {
			s = "(" + s + ")"
		}
	case isMySQLStringType(dataType):
		s = "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return &s
}

func isMySQLStringType(dataType string) bool {
	switch strings.ToLower(dataType) {
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext",
		"enum", "set", "binary", "varbinary", "date", "datetime", "timestamp", "time", "year":
		return true
	}
	return false
}

func quoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func init() {
	db.Register("mysql", myExtractor{})
	db.Register("mariadb", myExtractor{})
}
