package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"schemasync/internal/differ"
	"schemasync/internal/introspect"
	"schemasync/internal/logger"
	"schemasync/internal/sink"
	"schemasync/pkg/config"
)

// ErrDumpUnsupported is returned when the dialect cannot produce CREATE statements.
var ErrDumpUnsupported = errors.New("dialect does not support schema dumps")

// SystemSchemas are never dumped.
var SystemSchemas = []string{"sys", "mysql", "information_schema", "performance_schema", "liquibase_uap"}

// DumpOptions controls a dump.
type DumpOptions struct {
	File    string
	Exclude []string
	// Split writes one file per schema, named <schema>_<file>.
	Split bool
}

// Dumper writes the CREATE TABLE statements of every user schema of one server.
type Dumper struct {
	Config    config.DBConfig
	Connector Connector
	Sink      Sink
}

// Dump returns the paths it wrote.
func (d Dumper) Dump(ctx context.Context, opts DumpOptions) ([]string, error) {
	var paths []string
	err := d.Connector.With(ctx, d.Config, func(in introspect.Introspector) error {
		dumper, ok := in.(introspect.Dumper)
		if !ok {
			return fmt.Errorf("%s: %w", d.Config.Descriptor(), ErrDumpUnsupported)
		}

		schemas, err := dumper.ListSchemas(ctx)
		if err != nil {
			return fmt.Errorf("list schemas: %w", err)
		}
		schemas = excludeSchemas(schemas, append(slices.Clone(SystemSchemas), opts.Exclude...))

		var files []sink.File
		var combined bytes.Buffer
		for _, schema := range schemas {
			var buf bytes.Buffer
			if err := writeSchema(ctx, &buf, in, dumper, schema); err != nil {
				return err
			}
			if opts.Split {
				files = append(files, sink.File{Path: splitPath(opts.File, schema), Data: buf.Bytes()})
				continue
			}
			combined.Write(buf.Bytes())
		}
		if !opts.Split {
			files = append(files, sink.File{Path: opts.File, Data: combined.Bytes()})
		}

		if err := d.Sink.WriteFiles(files); err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		return nil
	})
	return paths, err
}

func excludeSchemas(schemas, excluded []string) []string {
	var out []string
	for _, s := range schemas {
		if slices.Contains(excluded, s) {
			logger.Info("excluding schema: %s", s)
			continue
		}
		out = append(out, s)
	}
	return out
}

func writeSchema(ctx context.Context, buf *bytes.Buffer, in introspect.Introspector, dumper introspect.Dumper, schema string) error {
	tables, err := in.ListTables(ctx, schema)
	if err != nil {
		return fmt.Errorf("list tables in %s: %w", schema, err)
	}
	logger.Debug("dumping %d tables from %s", len(tables), schema)

	for _, table := range tables {
		stmt, err := dumper.CreateTable(ctx, schema, table)
		if err != nil {
			return err
		}
		buf.WriteString(QualifyCreate(schema, stmt))
		buf.WriteString(";\n\n")
	}
	return nil
}

// QualifyCreate makes a CREATE TABLE statement idempotent and pins it to schema.
func QualifyCreate(schema, stmt string) string {
	return strings.Replace(stmt, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS "+differ.QuoteIdent(schema)+".", 1)
}

func splitPath(file, schema string) string {
	return filepath.Join(filepath.Dir(file), schema+"_"+filepath.Base(file))
}
