package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"schemasync/internal/db"
	"schemasync/internal/sink"
	"schemasync/internal/syncer"
	"schemasync/pkg/config"
)

var (
	dumpDB      string
	dumpFile    string
	dumpExclude []string
	dumpSplit   bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write CREATE TABLE statements for every user schema of a server",
	Long: `Dump the CREATE TABLE statements of every schema on a server, skipping the
system schemas (sys, mysql, information_schema, performance_schema,
liquibase_uap) and any schema passed with --exclude-schema.

Each statement is rewritten to CREATE TABLE IF NOT EXISTS ` + "`schema`" + `.<table>.
With --split every schema goes to its own <schema>_<output-file>.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		target := cfg.Baseline
		if flags.Changed("db") {
			if target, err = config.ParseURL(dumpDB); err != nil {
				return fmt.Errorf("--db: %w", err)
			}
		}
		if target.Type == "" {
			return errors.New("no server to dump: use --db or a baseline in the config file")
		}
		if flags.Changed("output-file") {
			cfg.Dump.File = dumpFile
		}
		if flags.Changed("exclude-schema") {
			cfg.Dump.Exclude = config.SplitList(joinList(dumpExclude))
		}
		if flags.Changed("split") {
			cfg.Dump.Split = dumpSplit
		}

		d := syncer.Dumper{
			Config:    target,
			Connector: db.Connector{Timeout: cfg.Timeout},
			Sink:      sink.NewOsWriter(),
		}
		paths, err := d.Dump(cmd.Context(), syncer.DumpOptions{
			File:    cfg.Dump.File,
			Exclude: cfg.Dump.Exclude,
			Split:   cfg.Dump.Split,
		})
		if err != nil {
			return err
		}
		for _, p := range paths {
			green.Fprint(cmd.OutOrStdout(), "wrote ")
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	f := dumpCmd.Flags()
	f.StringVar(&dumpDB, "db", "", "server connection string")
	f.StringVar(&dumpFile, "output-file", "", "file to write (default schema.sql)")
	f.StringSliceVar(&dumpExclude, "exclude-schema", nil, "schemas to skip besides the system ones")
	f.BoolVar(&dumpSplit, "split", false, "write one file per schema")
}
