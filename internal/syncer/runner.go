// Package syncer drives a sync run: it snapshots each schema on both
// endpoints, diffs them and hands the results to a sink.
package syncer

import (
	"context"
	"fmt"
	"strings"

	"schemasync/internal/differ"
	"schemasync/internal/introspect"
	"schemasync/internal/logger"
	"schemasync/internal/sink"
	"schemasync/pkg/config"
)

// Connector opens an introspection session for cfg and releases it when fn returns.
type Connector interface {
	With(ctx context.Context, cfg config.DBConfig, fn func(introspect.Introspector) error) error
}

// Sink persists run artifacts. WriteFiles writes all of them or none.
type Sink interface {
	WriteFiles(files []sink.File) error
}

// SchemaSummary describes what a run produced for one schema.
type SchemaSummary struct {
	Schema     string
	Statements int
	Rows       int
	Skipped    []string
	DDLPath    string // empty when no statements were generated
}

// Summary describes a whole run.
type Summary struct {
	Schemas    []SchemaSummary
	ReportPath string
}

// Statements is the total number of statements generated.
func (s Summary) Statements() int {
	n := 0
	for _, sc := range s.Schemas {
		n += sc.Statements
	}
	return n
}

// Runner compares Baseline against Destination schema by schema.
type Runner struct {
	Baseline    config.DBConfig
	Destination config.DBConfig
	Connector   Connector
	Differ      *differ.Differ
	Sink        Sink
	Output      config.OutputConfig
}

// Run processes schemas in order. Artifacts are written together once every
// schema has been compared, so a failure leaves no DDL and no report behind.
func (r Runner) Run(ctx context.Context, schemas []string) (Summary, error) {
	d := r.Differ
	if d == nil {
		d = differ.New(differ.Options{})
	}

	var outcomes []differ.Outcome
	seen := map[string]bool{}
	for _, schema := range schemas {
		schema = strings.TrimSpace(schema)
		if schema == "" || seen[schema] {
			continue
		}
		seen[schema] = true

		out, err := r.compareSchema(ctx, d, schema)
		if err != nil {
			return Summary{}, fmt.Errorf("schema %s: %w", schema, err)
		}
		outcomes = append(outcomes, out)
	}

	var summary Summary
	var files []sink.File
	var rows []differ.Row
	for _, out := range outcomes {
		sc := SchemaSummary{Schema: out.Schema, Rows: len(out.Rows), Skipped: out.Skipped}
		if stmts := out.Statements(); len(stmts) > 0 {
			sc.Statements = len(stmts)
			sc.DDLPath = r.Output.DDLPath(out.Schema)
			logger.Info("generating ddl: %s", sc.DDLPath)
			files = append(files, sink.DDLFile(sc.DDLPath, stmts))
		}
		rows = append(rows, out.Rows...)
		summary.Schemas = append(summary.Schemas, sc)
	}

	summary.ReportPath = r.Output.ReportPath()
	logger.Info("generating report: %s", summary.ReportPath)
	report, err := sink.ReportFile(summary.ReportPath, rows)
	if err != nil {
		return Summary{}, err
	}
	if err := r.Sink.WriteFiles(append(files, report)); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (r Runner) compareSchema(ctx context.Context, d *differ.Differ, schema string) (differ.Outcome, error) {
	left, err := r.snapshot(ctx, r.Baseline, schema)
	if err != nil {
		return differ.Outcome{}, fmt.Errorf("baseline: %w", err)
	}
	right, err := r.snapshot(ctx, r.Destination, schema)
	if err != nil {
		return differ.Outcome{}, fmt.Errorf("destination: %w", err)
	}

	out, err := d.Diff(left, right)
	if err != nil {
		return differ.Outcome{}, err
	}
	for _, t := range out.Skipped {
		logger.Warn("table %s exists on one side only, skipped", differ.QualifiedName(schema, t))
	}
	logger.Debug("schema %s: %d statements, %d report rows", schema, len(out.Statements()), len(out.Rows))
	return out, nil
}

func (r Runner) snapshot(ctx context.Context, base config.DBConfig, schema string) (introspect.Snapshot, error) {
	cfg, err := base.ForSchema(schema)
	if err != nil {
		return introspect.Snapshot{}, err
	}
	logger.Info("reading %s from %s", schema, cfg.Descriptor())

	var snap introspect.Snapshot
	err = r.Connector.With(ctx, cfg, func(in introspect.Introspector) error {
		var err error
		snap, err = introspect.Load(ctx, in, schema)
		return err
	})
	return snap, err
}
