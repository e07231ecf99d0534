package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "schemasync/internal/db/extractors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red.Sprint("error:"), err)
		stop()
		os.Exit(1)
	}
}
