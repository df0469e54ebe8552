// Package cli holds the flags and setup shared by every convd subcommand.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"video-conversion/internal/app"
	"video-conversion/internal/app/common"
	"video-conversion/internal/app/conversion"
	"video-conversion/internal/app/converter"
	"video-conversion/internal/config"
)

var (
	ConfigPath string
	Verbose    bool
)

// Setup loads the config file and builds the process logger. CONVD_CONFIG replaces the
// default config path but not an explicit --config.
func Setup() (*config.Config, *zap.Logger, error) {
	path := ConfigPath
	if v := os.Getenv("CONVD_CONFIG"); v != "" && path == config.DefaultConfigPath {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := common.NewLogger(cfg.Log.Development || Verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Engine builds an engine for a one-shot command. With showProgress, pass progress is
// drawn on stderr and the returned manager must be waited on before exit.
func Engine(cfg *config.Config, logger *zap.Logger, showProgress bool) (*conversion.Engine, *converter.ProgressManager, func(), error) {
	pm := converter.NewProgressManager(converter.ProgressConfig{
		Enabled: converter.ShouldShowProgress(showProgress),
		Writer:  os.Stderr,
	})
	engine, cleanup, err := app.InitializeEngine(cfg, pm, logger)
	if err != nil {
		pm.Shutdown()
		return nil, nil, nil, err
	}
	return engine, pm, cleanup, nil
}
