package migrate

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/internal/app"
	"video-conversion/internal/app/repository/migrate"
	"video-conversion/internal/config"
)

var (
	fromDriver string
	fromDSN    string
	afterID    int64
)

func init() {
	Cmd.Flags().StringVar(&fromDriver, "from-driver", "sqlite3", "driver of the database to copy from")
	Cmd.Flags().StringVar(&fromDSN, "from", "", "copy conversions and subtitles from this database")
	Cmd.Flags().Int64Var(&afterID, "after-id", 0, "resume a copy after this conversion id")
}

// Cmd represents the migrate command
var Cmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema, optionally copying jobs from another database",
	Long: `Create the schema, optionally copying jobs from another database

- Without --from, only creates missing tables and indexes
- With --from, copies conversions and subtitle sub-jobs into the configured database
- Rows already present are skipped, so an interrupted copy can be rerun`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		dst, err := app.OpenDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer dst.Close()

		if fromDSN == "" {
			if err := dst.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", dst.DriverName())
			return nil
		}

		src, err := app.OpenDatabase(config.DatabaseConfig{Driver: fromDriver, DSN: fromDSN})
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer src.Close()

		stats, err := migrate.Copy(cmd.Context(), src, dst, afterID, logger)
		logger.Info("copy finished",
			zap.Int("jobs", stats.Jobs),
			zap.Int("subtitles", stats.Subtitles),
			zap.Int("skipped", stats.Skipped),
			zap.Int64("last_id", stats.LastID))
		if err != nil {
			return fmt.Errorf("copy stopped after id %d: %w", stats.LastID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "copied %d jobs and %d subtitles, skipped %d\n", stats.Jobs, stats.Subtitles, stats.Skipped)
		return nil
	},
}
