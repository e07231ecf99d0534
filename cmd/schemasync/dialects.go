package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"schemasync/internal/db"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the database dialects this build can introspect",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, d := range db.RegisteredDialects() {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
	},
}

// joinList undoes pflag's comma splitting so config.SplitList can trim and dedupe.
func joinList(parts []string) string {
	return strings.Join(parts, ",")
}
