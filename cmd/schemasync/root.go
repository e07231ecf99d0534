package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"schemasync/internal/logger"
	"schemasync/pkg/config"
)

var (
	cfgPath  string
	envFiles []string
	verbose  bool
	logLevel string
	timeout  int

	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "schemasync",
	Short: "Generate DDL that brings a destination schema in line with a baseline",
	Long: `schemasync compares the tables of a baseline and a destination database
schema by schema and writes the ALTER statements needed to move the destination
toward the baseline, plus a CSV report of column and index name differences.

Examples:

  schemasync sync --baseline mysql://root:pw@prod:3306 --destination mysql://root:pw@staging:3306 --schemas shop,crm
  schemasync sync --config configs/example.yaml
  schemasync dump --db mysql://root:pw@prod:3306 --output-file schema.sql --split
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case verbose:
			logger.SetLevel(logger.LevelDebug)
		case logLevel != "":
			logger.SetLevel(logger.ParseLevel(logLevel))
		}
		return config.LoadEnv(envFiles...)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config YAML")
	pf.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	pf.StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
	pf.IntVar(&timeout, "timeout", 0, "db connect timeout seconds (overrides config)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(dialectsCmd)
}

// loadConfig layers defaults, the optional config file, the environment and
// the --timeout flag.
func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	cfg := config.Default()
	if cfgPath != "" {
		logger.Info("config file %s", cfgPath)
		c, err := config.LoadFile(cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = timeout
	}
	return cfg, nil
}
