package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"video-conversion/internal/api/server"
	"video-conversion/internal/api/v1/services"
	"video-conversion/internal/app/channel"
	"video-conversion/internal/app/conversion"
	"video-conversion/internal/app/converter"
	"video-conversion/internal/app/host"
	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/metrics"
	"video-conversion/internal/app/repository"
	"video-conversion/internal/app/repository/pg"
	"video-conversion/internal/app/repository/sqlite"
	"video-conversion/internal/app/storage"
	"video-conversion/internal/app/util/files"
	"video-conversion/internal/config"
)

// Service is everything a convd process runs.
type Service struct {
	Config   *config.Config
	Store    *repository.CommonDB
	Engine   *conversion.Engine
	Runner   *converter.Runner
	Server   *server.Server
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

func NewService(cfg *config.Config, store *repository.CommonDB, engine *conversion.Engine,
	runner *converter.Runner, srv *server.Server, reg *prometheus.Registry, logger *zap.Logger) *Service {
	return &Service{
		Config:   cfg,
		Store:    store,
		Engine:   engine,
		Runner:   runner,
		Server:   srv,
		Registry: reg,
		Logger:   logger,
	}
}

// OpenDatabase opens the record store named by cfg.Driver without touching its schema.
func OpenDatabase(cfg config.DatabaseConfig) (*repository.CommonDB, error) {
	switch cfg.Driver {
	case sqlite.DriverName, "":
		return sqlite.Open(cfg.DSN)
	case pg.DriverName:
		return pg.Open(cfg.DSN)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func provideDatabase(cfg *config.Config, logger *zap.Logger) (*repository.CommonDB, func(), error) {
	db, err := OpenDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideObjectStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	return storage.New(cfg.Storage, cfg.SiteID, logger)
}

func providePrefixCache(store storage.Store, cfg *config.Config) *storage.PrefixCache {
	return storage.NewPrefixCache(store, cfg.TenantPrefix, cfg.Engine.PrefixCacheTTL)
}

func provideStatusStore(cfg *config.Config, logger *zap.Logger) (channel.StatusStore, error) {
	return channel.NewStatusStore(cfg.StatusStore, cfg.TenantID, logger)
}

func provideIngestor(cfg *config.Config, store *repository.CommonDB, m *metrics.Collector,
	logger *zap.Logger) (*channel.Ingestor, func(), error) {
	queue, err := channel.NewQueue(cfg.Queue, cfg.SiteID, logger)
	if err != nil {
		return nil, nil, err
	}
	if queue == nil {
		return nil, func() {}, nil
	}
	cleanup := func() {
		if c, ok := queue.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("close queue", zap.Error(err))
			}
		}
	}
	ingestor := channel.NewIngestor(queue, store, cfg.TenantPrefix, cfg.SiteID, cfg.Engine.QueueBatchSize, m, logger)
	return ingestor, cleanup, nil
}

func provideUnhider(cfg *config.Config, logger *zap.Logger) host.Unhider {
	return host.New(cfg.Host, logger)
}

func provideLocator(cfg *config.Config) *files.Locator {
	return files.NewLocator(cfg.Files.Root)
}

func provideEventSink(store *repository.CommonDB, logger *zap.Logger) *logsink.Sink {
	return logsink.New(store, logger)
}

func provideEngine(
	cfg *config.Config,
	store *repository.CommonDB,
	objects storage.Store,
	prefixes *storage.PrefixCache,
	status channel.StatusStore,
	ingestor *channel.Ingestor,
	locator *files.Locator,
	unhider host.Unhider,
	events *logsink.Sink,
	m *metrics.Collector,
	observer conversion.PassObserver,
	logger *zap.Logger,
) *conversion.Engine {
	return conversion.New(conversion.Deps{
		Store:       store,
		Objects:     objects,
		Prefixes:    prefixes,
		StatusStore: status,
		Ingestor:    ingestor,
		Files:       locator,
		Unhider:     unhider,
		Resolver:    conversion.BestGuessResolver{},
		Events:      events,
		Metrics:     m,
		Observer:    observer,
		Logger:      logger,
	}, conversion.OptionsFromConfig(cfg))
}

func provideRunner(engine *conversion.Engine, cfg *config.Config, logger *zap.Logger) *converter.Runner {
	return converter.NewRunner(engine, cfg.Engine.Interval, cfg.Engine.MessageRetention, logger)
}

func provideConversionService(engine *conversion.Engine, logger *zap.Logger) services.ConversionService {
	return services.NewConversionService(engine, logger)
}

func provideServer(cfg *config.Config, svc services.ConversionService, reg *prometheus.Registry,
	logger *zap.Logger) *server.Server {
	var handler http.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return server.NewServer(cfg.HTTP, svc, handler, logger)
}

var infraSet = wire.NewSet(
	provideDatabase,
	provideRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	metrics.New,
	provideObjectStore,
	providePrefixCache,
	provideStatusStore,
	provideIngestor,
	provideUnhider,
	provideLocator,
	provideEventSink,
)

var engineSet = wire.NewSet(
	infraSet,
	provideEngine,
)

var serviceSet = wire.NewSet(
	engineSet,
	provideRunner,
	provideConversionService,
	provideServer,
	NewService,
)
