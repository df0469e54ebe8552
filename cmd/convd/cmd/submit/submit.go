package submit

import (
	"fmt"

	"github.com/spf13/cobra"

	"video-conversion/cmd/convd/cmd/cli"
)

var progress bool

func init() {
	Cmd.Flags().BoolVar(&progress, "progress", false, "show a progress bar even when stderr is not a terminal")
}

// Cmd represents the submit command
var Cmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit accepted jobs to the transcoding pipeline once",
	Long: `Submit accepted jobs to the transcoding pipeline once

- Newest jobs first, up to engine.submit_batch_size
- Uploads each source to the input area and marks the job in progress
- A missing source marks the job not_found; a failed upload marks it upload_error`,
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

		stats, err := engine.SubmitPending(ctx)
		pm.Wait()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted: %d, not found: %d, upload errors: %d, skipped: %d, failed: %d\n",
			stats.Submitted, stats.NotFound, stats.UploadErrors, stats.Skipped, stats.Failed)
		return nil
	},
}
