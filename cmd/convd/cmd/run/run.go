package run

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/internal/app"
)

var (
	noServer        bool
	shutdownTimeout time.Duration
)

func init() {
	Cmd.Flags().BoolVar(&noServer, "no-server", false, "run the scheduler without the HTTP API")
	Cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests")
}

// Cmd represents the run command
var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler and the HTTP API",
	Long: `Run the scheduler and the HTTP API until interrupted

- Every interval: submit accepted jobs, reconcile running ones, purge old queue messages
- Serves /api/v1/conversions, /health and /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cli.Setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		svc, cleanup, err := app.InitializeService(cfg, nil, logger)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		defer cleanup()

		ctx, stop := cli.SignalContext()
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return svc.Runner.Run(ctx)
		})
		if !noServer {
			g.Go(func() error {
				select {
				case err := <-svc.Server.Start():
					return err
				case <-ctx.Done():
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return svc.Server.Shutdown(shutdownCtx)
			})
		}

		err = g.Wait()
		logger.Info("convd stopped", zap.Error(err))
		return err
	},
}
