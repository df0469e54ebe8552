//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"video-conversion/internal/app/conversion"
	"video-conversion/internal/config"
)

// InitializeService builds the engine, scheduler and API server for `convd run`.
func InitializeService(cfg *config.Config, observer conversion.PassObserver, logger *zap.Logger) (*Service, func(), error) {
	wire.Build(serviceSet)
	return &Service{}, nil, nil
}

// InitializeEngine builds just the engine, for one-shot CLI commands.
func InitializeEngine(cfg *config.Config, observer conversion.PassObserver, logger *zap.Logger) (*conversion.Engine, func(), error) {
	wire.Build(engineSet)
	return &conversion.Engine{}, nil, nil
}
