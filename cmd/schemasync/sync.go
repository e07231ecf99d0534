package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"schemasync/internal/db"
	"schemasync/internal/differ"
	"schemasync/internal/sink"
	"schemasync/internal/syncer"
	"schemasync/pkg/config"
)

var (
	syncBaseline          string
	syncDestination       string
	syncSchemas           []string
	syncOutput            string
	syncFallbackCollation string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Generate DDL scripts and a difference report for the given schemas",
	Long: `Compare each schema of the baseline with the same schema of the destination.

For every schema with differences a <schema>-ddl.sql script is written to the
output directory. A single missing-cols-indices.csv report covering all schemas
is always written, even when nothing differs.

Connection strings have the form <engine>://[user[:password]@]host[:port].
For sqlite the path is a directory holding one <schema>.db file per schema.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applySyncFlags(cmd, &cfg); err != nil {
			return err
		}

		runner := syncer.Runner{
			Baseline:    cfg.Baseline,
			Destination: cfg.Destination,
			Connector:   db.Connector{Timeout: cfg.Timeout},
			Differ:      differ.New(differ.Options{FallbackCollation: cfg.Sync.FallbackCollation}),
			Sink:        sink.NewOsWriter(),
			Output:      cfg.Output,
		}
		summary, err := runner.Run(cmd.Context(), cfg.Schemas)
		if err != nil {
			return err
		}
		printSummary(cmd, summary)
		return nil
	},
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncBaseline, "baseline", "", "baseline connection string")
	f.StringVar(&syncDestination, "destination", "", "destination connection string")
	f.StringSliceVar(&syncSchemas, "schemas", nil, "comma separated schemas to compare")
	f.StringVarP(&syncOutput, "output", "o", "", "output directory (overrides config)")
	f.StringVar(&syncFallbackCollation, "fallback-collation", "", "collation used when a baseline table has none")
}

func applySyncFlags(cmd *cobra.Command, cfg *config.AppConfig) error {
	flags := cmd.Flags()
	if flags.Changed("baseline") {
		b, err := config.ParseURL(syncBaseline)
		if err != nil {
			return fmt.Errorf("--baseline: %w", err)
		}
		cfg.Baseline = b
	}
	if flags.Changed("destination") {
		d, err := config.ParseURL(syncDestination)
		if err != nil {
			return fmt.Errorf("--destination: %w", err)
		}
		cfg.Destination = d
	}
	if flags.Changed("schemas") {
		cfg.Schemas = config.SplitList(joinList(syncSchemas))
	}
	if flags.Changed("output") {
		cfg.Output.Dir = syncOutput
	}
	if flags.Changed("fallback-collation") {
		cfg.Sync.FallbackCollation = syncFallbackCollation
	}

	switch {
	case cfg.Baseline.Type == "":
		return errors.New("no baseline connection: use --baseline, the config file or " + config.EnvBaseline)
	case cfg.Destination.Type == "":
		return errors.New("no destination connection: use --destination, the config file or " + config.EnvDestination)
	case len(cfg.Schemas) == 0:
		return errors.New("no schemas to compare: use --schemas, the config file or " + config.EnvSchemas)
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary syncer.Summary) {
	out := cmd.OutOrStdout()
	for _, s := range summary.Schemas {
		switch {
		case s.Statements > 0:
			green.Fprintf(out, "%-24s", s.Schema)
			fmt.Fprintf(out, " %d statements -> %s", s.Statements, s.DDLPath)
		default:
			fmt.Fprintf(out, "%-24s no statements", s.Schema)
		}
		if s.Rows > 0 {
			yellow.Fprintf(out, ", %d tables with name differences", s.Rows)
		}
		if len(s.Skipped) > 0 {
			yellow.Fprintf(out, ", %d one-sided tables skipped", len(s.Skipped))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "report: %s\n", summary.ReportPath)
}
