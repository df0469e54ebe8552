package status

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/internal/app"
)

// Cmd represents the status command
var Cmd = &cobra.Command{
	Use:   "status <content-hash>",
	Short: "Print a conversion job and its subtitle sub-jobs as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		engine, cleanup, err := app.InitializeEngine(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		view, err := engine.Job(cmd.Context(), strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}
