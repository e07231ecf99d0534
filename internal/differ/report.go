package differ

import (
	"schemasync/internal/compare"
	"schemasync/internal/introspect"
)

// Row reports the column and index names present on one side only of a table.
type Row struct {
	Table            string
	LeftOnlyCols     []string
	RightOnlyCols    []string
	LeftOnlyIndices  []string
	RightOnlyIndices []string
}

// ReportRows emits one row per common table whose column or index name sets differ.
func ReportRows(schema string, left, right introspect.Snapshot) []Row {
	var rows []Row
	for _, name := range left.TableNames() {
		rt, ok := right.Table(name)
		if !ok {
			continue
		}
		lt := left.Tables[name]

		row := Row{Table: QualifiedName(schema, name)}
		row.LeftOnlyCols, row.RightOnlyCols = compare.Names(lt.ColumnKeys(), rt.ColumnKeys())
		row.LeftOnlyIndices, row.RightOnlyIndices = compare.Names(lt.IndexKeys(), rt.IndexKeys())

		if len(row.LeftOnlyCols)+len(row.RightOnlyCols)+len(row.LeftOnlyIndices)+len(row.RightOnlyIndices) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
