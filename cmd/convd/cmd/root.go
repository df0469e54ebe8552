package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/cmd/convd/cmd/create"
	"video-conversion/cmd/convd/cmd/export"
	"video-conversion/cmd/convd/cmd/migrate"
	"video-conversion/cmd/convd/cmd/reconcile"
	"video-conversion/cmd/convd/cmd/remove"
	"video-conversion/cmd/convd/cmd/run"
	"video-conversion/cmd/convd/cmd/status"
	"video-conversion/cmd/convd/cmd/submit"
	"video-conversion/cmd/convd/cmd/version"
	"video-conversion/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "convd",
	Short: "Video conversion job tracker",
	Long: `convd tracks video conversion jobs from upload to playable output.

- Accepted uploads are submitted to the transcoding pipeline
- Status is reconciled from the status store, the status queue and the output area
- Subtitle sub-jobs are tracked per language alongside each conversion`,
	SilenceUsage:     true,
	TraverseChildren: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(submit.Cmd)
	rootCmd.AddCommand(reconcile.Cmd)
	rootCmd.AddCommand(create.Cmd)
	rootCmd.AddCommand(status.Cmd)
	rootCmd.AddCommand(remove.Cmd)
	rootCmd.AddCommand(export.Cmd)
	rootCmd.AddCommand(migrate.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().StringVarP(&cli.ConfigPath, "config", "c", config.DefaultConfigPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&cli.Verbose, "verbose", "V", false, "verbose output")
}
