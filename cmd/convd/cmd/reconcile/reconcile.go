package reconcile

import (
	"fmt"

	"github.com/spf13/cobra"

	"video-conversion/cmd/convd/cmd/cli"
)

var progress bool

func init() {
	Cmd.Flags().BoolVar(&progress, "progress", false, "show a progress bar even when stderr is not a terminal")
}

// Cmd represents the reconcile command
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile running jobs against the status channels once",
	Long: `Reconcile running jobs against the status channels once

- Reads the status store first, then the status queue
- Updates transcoder and subtitle sub-statuses, then the overall status
- Times out jobs that stopped reporting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		engine, pm, cleanup, err := cli.Engine(cfg, logger, progress)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := cli.SignalContext()
		defer stop()

		stats, err := engine.Reconcile(ctx)
		pm.Wait()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "candidates: %d, updated: %d, completed: %d, timed out: %d, failed: %d\n",
			stats.Candidates, stats.Updated, stats.Completed, stats.TimedOut, stats.Failed)
		fmt.Fprintf(cmd.OutOrStdout(), "queue messages: %d received, %d stored, %d duplicates, %d foreign\n",
			stats.Ingest.Received, stats.Ingest.Stored, stats.Ingest.Duplicates, stats.Ingest.Foreign)
		return nil
	},
}
