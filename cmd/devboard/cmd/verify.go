package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/okian/standings/internal/adapters/http/api"
	"github.com/okian/standings/internal/devboard"
	"github.com/spf13/cobra"
)

var (
	verifyURL     string
	verifyTimeout time.Duration
)

func init() {
	verifyCmd.Flags().StringVar(&verifyURL, "url", "http://localhost:9080", "base URL of the standings service")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 10*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks that a running service publishes a consistent snapshot.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rep, err := devboard.Verify(cmd.Context(), verifyURL, verifyTimeout)
		if err != nil && !errors.Is(err, devboard.ErrInconsistent) {
			return err
		}

		fmt.Printf("state: %s  entries: %d\n", rep.Snapshot.State, len(rep.Snapshot.Entries))
		if rep.Snapshot.Error != "" {
			fmt.Printf("last error (%s): %s\n", rep.Snapshot.ErrorKind, rep.Snapshot.Error)
		}
		fmt.Print(api.RenderTable(rep.Snapshot.Entries))

		if len(rep.Problems) == 0 {
			fmt.Println("snapshot is consistent")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Problem"})
		for i, p := range rep.Problems {
			t.AppendRow(table.Row{i + 1, p})
		}
		t.Render()
		return err
	},
}
