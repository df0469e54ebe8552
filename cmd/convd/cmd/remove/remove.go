package remove

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/internal/app"
)

// Cmd represents the delete command
var Cmd = &cobra.Command{
	Use:   "delete <content-hash>",
	Short: "Delete a conversion job, its messages and its stored objects",
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

		hash := strings.ToLower(args[0])
		if err := engine.DeleteJob(cmd.Context(), hash); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", hash)
		return nil
	},
}
