// Package differ turns the structural differences between a baseline and a
// destination schema snapshot into DDL statements and report rows.
//
// Statements always move the destination toward the baseline. Index
// differences are only ever reported, never altered, and tables that exist on
// one side only are skipped.
package differ

import (
	"errors"
	"fmt"

	"schemasync/internal/compare"
	"schemasync/internal/introspect"
)

// DefaultFallbackCollation is used when the baseline table has no explicit collation.
const DefaultFallbackCollation = "utf8mb4_unicode_520_ci"

var (
	// ErrMissingCharset means a baseline table has no default charset option
	// although its options differ from the destination.
	ErrMissingCharset = errors.New("baseline table options have no default charset")
	// ErrMissingCollation means neither the baseline nor the fallback provide a collation.
	ErrMissingCollation = errors.New("no collation available for baseline table")
)

// Options configures a Differ.
type Options struct {
	FallbackCollation string
}

// Differ compares two snapshots of the same schema.
type Differ struct {
	fallbackCollation string
}

// New returns a Differ. An empty FallbackCollation selects DefaultFallbackCollation.
func New(opts Options) *Differ {
	if opts.FallbackCollation == "" {
		opts.FallbackCollation = DefaultFallbackCollation
	}
	return &Differ{fallbackCollation: opts.FallbackCollation}
}

// Outcome holds everything generated for one schema.
type Outcome struct {
	Schema        string
	TableOptions  []string
	ChangeColumns []string
	AddColumns    []string
	DropColumns   []string
	Rows          []Row
	Skipped       []string
}

// Statements returns all statements in their fixed order: table options,
// column definitions, added columns, dropped columns.
func (o Outcome) Statements() []string {
	out := make([]string, 0, len(o.TableOptions)+len(o.ChangeColumns)+len(o.AddColumns)+len(o.DropColumns))
	out = append(out, o.TableOptions...)
	out = append(out, o.ChangeColumns...)
	out = append(out, o.AddColumns...)
	out = append(out, o.DropColumns...)
	return out
}

// Empty reports whether nothing was generated.
func (o Outcome) Empty() bool {
	return len(o.Statements()) == 0 && len(o.Rows) == 0
}

// Diff compares left (baseline) against right (destination).
func (d *Differ) Diff(left, right introspect.Snapshot) (Outcome, error) {
	schema := left.Schema
	out := Outcome{Schema: schema}

	var err error
	if out.TableOptions, err = d.AlterTableStmts(schema, left, right); err != nil {
		return Outcome{}, err
	}

	res := compare.Compare(left, right)
	out.ChangeColumns = ChangeColumnStmts(schema, res)
	out.AddColumns, out.DropColumns = AddDropColumnStmts(schema, left, right)
	out.Rows = ReportRows(schema, left, right)
	out.Skipped = append(append(out.Skipped, res.LeftOnlyTables...), res.RightOnlyTables...)
	return out, nil
}

// AlterTableStmts emits one CHARACTER SET statement per common table whose
// baseline options are not all present in the destination.
func (d *Differ) AlterTableStmts(schema string, left, right introspect.Snapshot) ([]string, error) {
	var stmts []string
	for _, name := range left.TableNames() {
		rt, ok := right.Table(name)
		if !ok {
			continue
		}
		lt := left.Tables[name]
		if len(lt.Options.Missing(rt.Options)) == 0 {
			continue
		}

		charset := lt.Options[introspect.OptionCharset]
		if charset == "" {
			return nil, fmt.Errorf("alter table %s: %w", QualifiedName(schema, name), ErrMissingCharset)
		}
		collate := lt.Options[introspect.OptionCollate]
		if collate == "" {
			collate = d.fallbackCollation
		}
		if collate == "" {
			return nil, fmt.Errorf("alter table %s: %w", QualifiedName(schema, name), ErrMissingCollation)
		}
		stmts = append(stmts, AlterTableStmt(schema, name, charset, collate))
	}
	return stmts, nil
}

// ChangeColumnStmts flattens the per-table column diffs of res into CHANGE
// COLUMN statements carrying the baseline definition.
func ChangeColumnStmts(schema string, res compare.Result) []string {
	var stmts []string
	for _, t := range res.Tables {
		for _, cd := range t.Columns.Diff {
			stmts = append(stmts, ChangeColumnStmt(schema, t.Name, cd.Key, cd.Left))
		}
	}
	return stmts
}

// AddDropColumnStmts emits ADD COLUMN statements for baseline-only columns and
// DROP COLUMN statements for destination-only columns of every common table.
func AddDropColumnStmts(schema string, left, right introspect.Snapshot) (adds, drops []string) {
	for _, name := range left.TableNames() {
		rt, ok := right.Table(name)
		if !ok {
			continue
		}
		lt := left.Tables[name]
		leftOnly, rightOnly := compare.Names(lt.ColumnKeys(), rt.ColumnKeys())

		for _, key := range leftOnly {
			c, _ := lt.Column(key)
			adds = append(adds, AddColumnStmt(schema, name, c))
		}
		for _, key := range rightOnly {
			c, _ := rt.Column(key)
			drops = append(drops, DropColumnStmt(schema, name, c.Name))
		}
	}
	return adds, drops
}
