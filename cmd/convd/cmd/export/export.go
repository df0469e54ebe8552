package export

import (
	"fmt"

	"github.com/spf13/cobra"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/internal/app"
	"video-conversion/internal/app/converter/export"
)

var outputFilePath string

func init() {
	Cmd.Flags().StringVarP(&outputFilePath, "outputFilePath", "o", "", "set outputFilePath")

	Cmd.MarkFlagRequired("outputFilePath")
}

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export every conversion job to excel",
	Long: `Export every conversion job to excel

- One row per job with its overall and transcoder status, output size and timestamps`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := app.OpenDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := export.ToExcel(cmd.Context(), db, outputFilePath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "export finished, %d jobs, exported file path: %v\n", n, outputFilePath)
		return nil
	},
}
