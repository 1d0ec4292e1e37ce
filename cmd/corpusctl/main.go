package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lexcorpus/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "corpusctl",
	Short: "Operator tooling for the legal corpus backend",
	Long: `corpusctl runs maintenance jobs against the corpus database and stores.

It reads the same environment as the server (DATABASE_URL, storage,
search and REDIS_URL settings).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(cli.SweepCmd())
	rootCmd.AddCommand(cli.ReconcileCmd())
	rootCmd.AddCommand(cli.DuplicatesCmd())
	rootCmd.AddCommand(cli.StaleCmd())
	rootCmd.AddCommand(cli.IngestCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
