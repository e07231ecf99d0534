package differ

import (
	"fmt"
	"strings"

	"schemasync/internal/introspect"
)

// QuoteIdent wraps an identifier in MySQL backticks.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QualifiedName returns `schema`.`table`.
func QualifiedName(schema, table string) string {
	return QuoteIdent(schema) + "." + QuoteIdent(table)
}

// columnSpec renders "<type> [NOT NULL] [DEFAULT <default>]".
func columnSpec(c introspect.Column) string {
	parts := []string{c.Type}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.Default != nil && *c.Default != "" {
		parts = append(parts, "DEFAULT "+*c.Default)
	}
	return strings.Join(parts, " ")
}

// AlterTableStmt builds the CHARACTER SET / COLLATE statement for a table.
func AlterTableStmt(schema, table, charset, collate string) string {
	return fmt.Sprintf("ALTER TABLE %s CHARACTER SET %s COLLATE %s;", QualifiedName(schema, table), charset, collate)
}

// AddColumnStmt builds an ADD COLUMN statement from the baseline definition.
func AddColumnStmt(schema, table string, c introspect.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", QualifiedName(schema, table), QuoteIdent(c.Name), columnSpec(c))
}

// DropColumnStmt builds a DROP COLUMN statement. Only the name is needed.
func DropColumnStmt(schema, table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", QualifiedName(schema, table), QuoteIdent(column))
}

// ChangeColumnStmt builds a CHANGE COLUMN statement carrying the baseline definition.
func ChangeColumnStmt(schema, table, column string, c introspect.Column) string {
	return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s;",
		QualifiedName(schema, table), QuoteIdent(column), QuoteIdent(column), columnSpec(c))
}
