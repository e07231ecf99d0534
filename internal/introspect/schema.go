package introspect

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Well-known TableOptions keys.
const (
	OptionEngine  = "engine"
	OptionCharset = "default_charset"
	OptionCollate = "collate"
)

// Column represents a table column.
type Column struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// Key is the case-insensitive identity of the column within its table.
func (c Column) Key() string {
	return strings.ToLower(c.Name)
}

// Index represents a table index. Only its name takes part in comparisons.
type Index struct {
	Name   string `json:"name"`
	Unique bool   `json:"unique"`
}

// Key is the case-insensitive identity of the index within its table.
func (i Index) Key() string {
	return strings.ToLower(i.Name)
}

// TableOptions holds table-level options such as engine, charset and collation.
type TableOptions map[string]string

// Missing returns the (key, value) pairs of o that are not present in other,
// sorted by key.
func (o TableOptions) Missing(other TableOptions) [][2]string {
	var out [][2]string
	for k, v := range o {
		if ov, ok := other[k]; !ok || ov != v {
			out = append(out, [2]string{k, v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Table represents a database table with its columns, indexes and options.
type Table struct {
	Name    string       `json:"name"`
	Columns []Column     `json:"columns"`
	Indexes []Index      `json:"indexes"`
	Options TableOptions `json:"options,omitempty"`
}

// ColumnKeys returns the sorted, lowercased column names.
func (t Table) ColumnKeys() []string {
	keys := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		keys = append(keys, c.Key())
	}
	return dedupSorted(keys)
}

// IndexKeys returns the sorted, lowercased index names.
func (t Table) IndexKeys() []string {
	keys := make([]string, 0, len(t.Indexes))
	for _, i := range t.Indexes {
		keys = append(keys, i.Key())
	}
	return dedupSorted(keys)
}

// Column looks a column up by its case-insensitive name.
func (t Table) Column(name string) (Column, bool) {
	key := strings.ToLower(name)
	for _, c := range t.Columns {
		if c.Key() == key {
			return c, true
		}
	}
	return Column{}, false
}

// Snapshot is the structure of one schema as seen through an Introspector.
type Snapshot struct {
	Schema string           `json:"schema"`
	Tables map[string]Table `json:"tables"`
}

// TableNames returns the snapshot's table names in sorted order.
func (s Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for n := range s.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Table returns the named table. Table names are matched exactly.
func (s Snapshot) Table(name string) (Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// Introspector reads schema structure from one database endpoint.
type Introspector interface {
	ListTables(ctx context.Context, schema string) ([]string, error)
	Columns(ctx context.Context, schema, table string) ([]Column, error)
	Indexes(ctx context.Context, schema, table string) ([]Index, error)
	TableOptions(ctx context.Context, schema, table string) (TableOptions, error)
}

// Dumper is implemented by introspectors able to reproduce CREATE statements.
type Dumper interface {
	ListSchemas(ctx context.Context) ([]string, error)
	CreateTable(ctx context.Context, schema, table string) (string, error)
}

// Load reads a full snapshot of schema. Any introspection error aborts the load.
func Load(ctx context.Context, in Introspector, schema string) (Snapshot, error) {
	snap := Snapshot{Schema: schema, Tables: map[string]Table{}}

	names, err := in.ListTables(ctx, schema)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tables in %s: %w", schema, err)
	}

	for _, name := range names {
		t := Table{Name: name}
		if t.Columns, err = in.Columns(ctx, schema, name); err != nil {
			return Snapshot{}, fmt.Errorf("columns for %s.%s: %w", schema, name, err)
		}
		if t.Indexes, err = in.Indexes(ctx, schema, name); err != nil {
			return Snapshot{}, fmt.Errorf("indexes for %s.%s: %w", schema, name, err)
		}
		if t.Options, err = in.TableOptions(ctx, schema, name); err != nil {
			return Snapshot{}, fmt.Errorf("table options for %s.%s: %w", schema, name, err)
		}
		snap.Tables[name] = t
	}
	return snap, nil
}

func dedupSorted(keys []string) []string {
	sort.Strings(keys)
	out := keys[:0]
	for i, k := range keys {
		if i > 0 && k == keys[i-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}
