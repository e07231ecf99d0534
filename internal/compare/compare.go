// Package compare produces a structured, per-table diff of two schema snapshots.
package compare

import (
	"sort"
	"strings"

	"schemasync/internal/introspect"
)

// ColumnDiff is a column present on both sides whose definition differs.
type ColumnDiff struct {
	Key   string
	Left  introspect.Column
	Right introspect.Column
}

// ColumnsDiff holds the column differences of one table.
type ColumnsDiff struct {
	LeftOnly  []string
	RightOnly []string
	Diff      []ColumnDiff
}

// IndexesDiff holds the index name differences of one table.
type IndexesDiff struct {
	LeftOnly  []string
	RightOnly []string
}

// TableDiff is the diff record for a table present on both sides.
type TableDiff struct {
	Name    string
	Columns ColumnsDiff
	Indexes IndexesDiff
}

// Empty reports whether the table has no column or index differences.
func (d TableDiff) Empty() bool {
	return len(d.Columns.LeftOnly) == 0 && len(d.Columns.RightOnly) == 0 && len(d.Columns.Diff) == 0 &&
		len(d.Indexes.LeftOnly) == 0 && len(d.Indexes.RightOnly) == 0
}

// Result is the outcome of comparing two snapshots of the same schema.
type Result struct {
	Schema          string
	Tables          []TableDiff
	LeftOnlyTables  []string
	RightOnlyTables []string
}

// Table returns the diff record of the named table, if it differs.
func (r Result) Table(name string) (TableDiff, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableDiff{}, false
}

// Compare diffs left against right. Tables only present on one side are listed
// in LeftOnlyTables/RightOnlyTables and are not compared further.
func Compare(left, right introspect.Snapshot) Result {
	res := Result{Schema: left.Schema}

	for _, name := range left.TableNames() {
		lt := left.Tables[name]
		rt, ok := right.Table(name)
		if !ok {
			res.LeftOnlyTables = append(res.LeftOnlyTables, name)
			continue
		}
		d := Tables(lt, rt)
		if !d.Empty() {
			res.Tables = append(res.Tables, d)
		}
	}
	for _, name := range right.TableNames() {
		if _, ok := left.Table(name); !ok {
			res.RightOnlyTables = append(res.RightOnlyTables, name)
		}
	}
	return res
}

// Tables diffs two definitions of the same table.
func Tables(left, right introspect.Table) TableDiff {
	d := TableDiff{Name: left.Name}
	d.Columns.LeftOnly, d.Columns.RightOnly = Names(left.ColumnKeys(), right.ColumnKeys())
	d.Indexes.LeftOnly, d.Indexes.RightOnly = Names(left.IndexKeys(), right.IndexKeys())

	for _, key := range left.ColumnKeys() {
		lc, _ := left.Column(key)
		rc, ok := right.Column(key)
		if !ok || SameDefinition(lc, rc) {
			continue
		}
		d.Columns.Diff = append(d.Columns.Diff, ColumnDiff{Key: lc.Name, Left: lc, Right: rc})
	}
	return d
}

// Names splits two sorted key sets into left-only and right-only members.
// Both results are sorted and never nil.
func Names(left, right []string) (leftOnly, rightOnly []string) {
	leftOnly, rightOnly = []string{}, []string{}
	inRight := make(map[string]bool, len(right))
	for _, k := range right {
		inRight[k] = true
	}
	inLeft := make(map[string]bool, len(left))
	for _, k := range left {
		inLeft[k] = true
		if !inRight[k] {
			leftOnly = append(leftOnly, k)
		}
	}
	for _, k := range right {
		if !inLeft[k] {
			rightOnly = append(rightOnly, k)
		}
	}
	sort.Strings(leftOnly)
	sort.Strings(rightOnly)
	return leftOnly, rightOnly
}

// SameDefinition compares the (type, nullable, default) tuple of two columns.
// Types are compared exactly after trimming: MySQL column types carry
// case-sensitive enum and set members. An empty default matches a missing one.
func SameDefinition(a, b introspect.Column) bool {
	if strings.TrimSpace(a.Type) != strings.TrimSpace(b.Type) {
		return false
	}
	if a.Nullable != b.Nullable {
		return false
	}
	if noDefault(a.Default) || noDefault(b.Default) {
		return noDefault(a.Default) && noDefault(b.Default)
	}
	return *a.Default == *b.Default
}

func noDefault(d *string) bool {
	return d == nil || *d == ""
}
