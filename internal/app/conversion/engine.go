// Package conversion drives video conversion jobs through their lifecycle: submission
// to the transcoding pipeline, reconciliation of the status channels into one job
// state, subtitle sub-jobs, and cleanup of remote input once a job is done.
//
// Only the Engine mutates job and subtitle status fields.
package conversion

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"video-conversion/internal/app/channel"
	"video-conversion/internal/app/host"
	"video-conversion/internal/app/logsink"
	"video-conversion/internal/app/metrics"
	"video-conversion/internal/app/repository"
	"video-conversion/internal/app/storage"
	"video-conversion/internal/config"
)

// FileSource opens locally stored uploads, by storage path digest or by content hash.
type FileSource interface {
	Open(contentHash string) (*os.File, int64, error)
	OpenPath(pathHash string) (*os.File, int64, error)
}

// Pass names used for metrics and progress reporting.
const (
	PassSubmit    = "submit"
	PassReconcile = "reconcile"
)

// PassObserver is told how many jobs a pass will handle and when each one is done.
type PassObserver interface {
	PassStarted(pass string, total int)
	JobDone(pass string)
}

type nopObserver struct{}

func (nopObserver) PassStarted(string, int) {}
func (nopObserver) JobDone(string) {}

// Options are the engine's business settings.
type Options struct {
	SiteID       string
	TenantPrefix string

	TranscoderBackend string
	AlternateBackend  string
	// UseAlternate flags new jobs for the alternate transcoder.
	UseAlternate bool
	MaxWidth     int
	MaxHeight    int
	HLSSuffix    string

	DefaultLanguage string
	// SubtitlesBlockCompletion keeps a job open until every subtitle sub-job is terminal.
	SubtitlesBlockCompletion bool

	SubmitBatchSize    int
	ReconcileBatchSize int
	StatusTimeout      time.Duration
	CompletionTimeout  time.Duration
	Concurrency        int
	PrefixCacheTTL     time.Duration
}

// OptionsFromConfig maps the service configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SiteID:                   cfg.SiteID,
		TenantPrefix:             cfg.TenantPrefix,
		TranscoderBackend:        cfg.Transcoder.Backend,
		AlternateBackend:         cfg.Transcoder.AlternateBackend,
		UseAlternate:             cfg.Transcoder.UseAlternate,
		MaxWidth:                 cfg.Transcoder.MaxWidth,
		MaxHeight:                cfg.Transcoder.MaxHeight,
		HLSSuffix:                cfg.Transcoder.HLSSuffix,
		DefaultLanguage:          cfg.Subtitles.DefaultLanguage,
		SubtitlesBlockCompletion: !cfg.Subtitles.IgnoreForCompletion,
		SubmitBatchSize:          cfg.Engine.SubmitBatchSize,
		ReconcileBatchSize:       cfg.Engine.ReconcileBatchSize,
		StatusTimeout:            cfg.Engine.StatusTimeout,
		CompletionTimeout:        cfg.Engine.CompletionTimeout,
		Concurrency:              cfg.Engine.Concurrency,
		PrefixCacheTTL:           cfg.Engine.PrefixCacheTTL,
	}
}

func (o *Options) setDefaults() {
	if o.MaxWidth <= 0 {
		o.MaxWidth = config.DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = config.DefaultMaxHeight
	}
	if o.HLSSuffix == "" {
		o.HLSSuffix = ".m3u8"
	}
	if o.SubmitBatchSize <= 0 {
		o.SubmitBatchSize = config.DefaultSubmitBatchSize
	}
	if o.ReconcileBatchSize <= 0 {
		o.ReconcileBatchSize = config.DefaultReconcileBatch
	}
	if o.StatusTimeout <= 0 {
		o.StatusTimeout = config.DefaultStatusTimeout
	}
	if o.CompletionTimeout <= 0 {
		o.CompletionTimeout = config.DefaultCompletionTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.PrefixCacheTTL <= 0 {
		o.PrefixCacheTTL = config.DefaultPrefixCacheTTL
	}
}

// Deps are the engine's collaborators. StatusStore and Ingestor may be nil when the
// corresponding channel is disabled.
type Deps struct {
	Store       repository.Store
	Objects     storage.Store
	Prefixes    *storage.PrefixCache
	StatusStore channel.StatusStore
	Ingestor    *channel.Ingestor
	Files       FileSource
	Unhider     host.Unhider
	Resolver    LanguageResolver
	Events      *logsink.Sink
	Metrics     *metrics.Collector
	Observer    PassObserver
	Logger      *zap.Logger
}

// Engine owns every status mutation of conversion jobs and their subtitle sub-jobs.
type Engine struct {
	store    repository.Store
	objects  storage.Store
	prefixes *storage.PrefixCache
	status   channel.StatusStore
	ingestor *channel.Ingestor
	files    FileSource
	unhider  host.Unhider
	resolver LanguageResolver
	events   *logsink.Sink
	metrics  *metrics.Collector
	observer PassObserver
	logger   *zap.Logger
	opts     Options
	locks    *keyedMutex
	now      func() time.Time
}

func New(deps Deps, opts Options) *Engine {
	opts.setDefaults()
	e := &Engine{
		store:    deps.Store,
		objects:  deps.Objects,
		prefixes: deps.Prefixes,
		status:   deps.StatusStore,
		ingestor: deps.Ingestor,
		files:    deps.Files,
		unhider:  deps.Unhider,
		resolver: deps.Resolver,
		events:   deps.Events,
		metrics:  deps.Metrics,
		observer: deps.Observer,
		logger:   deps.Logger,
		opts:     opts,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.prefixes == nil {
		e.prefixes = storage.NewPrefixCache(e.objects, opts.TenantPrefix, opts.PrefixCacheTTL)
	}
	if e.unhider == nil {
		e.unhider = host.NewLogUnhider(e.logger)
	}
	if e.resolver == nil {
		e.resolver = BestGuessResolver{}
	}
	if e.events == nil {
		e.events = logsink.New(deps.Store, e.logger)
	}
	return e
}

// InputKey is where a job's source video is uploaded in the input area.
func (e *Engine) InputKey(contentHash string) string {
	return e.opts.TenantPrefix + "/" + contentHash + "/" + contentHash
}

// OutputPrefix is the prefix under which the transcoder writes a job's renditions.
func (e *Engine) OutputPrefix(contentHash string) string {
	return e.opts.TenantPrefix + "/" + contentHash + "/"
}

// keyedMutex serializes work per content hash.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

// Lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
