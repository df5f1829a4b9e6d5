// Package cmd holds the devboard command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "devboard",
	Short:         "devboard serves a moving leaderboard and a Gemini stand-in for local runs of the standings service.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it returns or the process is signalled.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
