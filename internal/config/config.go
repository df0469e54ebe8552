package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names shared by the storage and channel sections.
const (
	BackendSDK    = "sdk"
	BackendHosted = "hosted"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Defaults
const (
	DefaultConfigPath        = "config/convd.yaml"
	DefaultSubmitBatchSize   = 1000
	DefaultReconcileBatch    = 1000
	DefaultQueueBatchSize    = 100
	DefaultStatusTimeout     = 24 * time.Hour
	DefaultCompletionTimeout = 24 * time.Hour
	DefaultConcurrency       = 4
	DefaultInterval          = time.Minute
	DefaultMessageRetention  = 7 * 24 * time.Hour
	DefaultPrefixCacheTTL    = 10 * time.Minute
	DefaultHTTPTimeout       = 60 * time.Second
	DefaultMaxWidth          = 1920
	DefaultMaxHeight         = 1080
)

// Config is the full service configuration.
type Config struct {
	SiteID       string `yaml:"site_id" validate:"required"`
	TenantPrefix string `yaml:"tenant_prefix" validate:"required,excludes=/"`
	// TenantID is the second half of the key-value channel's composite key.
	TenantID string `yaml:"tenant_id"`

	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	StatusStore StatusStoreConfig `yaml:"status_store"`
	Queue       QueueConfig       `yaml:"queue"`
	Transcoder  TranscoderConfig  `yaml:"transcoder"`
	Subtitles   SubtitlesConfig   `yaml:"subtitles"`
	Engine      EngineConfig      `yaml:"engine"`
	Files       FilesConfig       `yaml:"files"`
	Host        HostConfig        `yaml:"host"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type StorageConfig struct {
	Backend      string        `yaml:"backend" validate:"oneof=sdk hosted memory"`
	Endpoint     string        `yaml:"endpoint" validate:"required_if=Backend sdk"`
	AccessKey    string        `yaml:"access_key"`
	SecretKey    string        `yaml:"secret_key"`
	Region       string        `yaml:"region"`
	UseSSL       bool          `yaml:"use_ssl"`
	InputBucket  string        `yaml:"input_bucket" validate:"required"`
	OutputBucket string        `yaml:"output_bucket" validate:"required"`
	BrokerURL    string        `yaml:"broker_url" validate:"required_if=Backend hosted,omitempty,url"`
	APIToken     string        `yaml:"api_token"`
	Timeout      time.Duration `yaml:"timeout"`
}

type StatusStoreConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=sdk hosted none"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend sdk"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	HostedURL     string        `yaml:"hosted_url" validate:"required_if=Backend hosted,omitempty,url"`
	APIToken      string        `yaml:"api_token"`
	Timeout       time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	Backend   string        `yaml:"backend" validate:"oneof=sdk hosted none"`
	AMQPURL   string        `yaml:"amqp_url" validate:"required_if=Backend sdk"`
	QueueName string        `yaml:"queue_name"`
	HostedURL string        `yaml:"hosted_url" validate:"required_if=Backend hosted,omitempty,url"`
	APIToken  string        `yaml:"api_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

type TranscoderConfig struct {
	Backend          string `yaml:"backend"`
	AlternateBackend string `yaml:"alternate_backend"`
	// UseAlternate flags newly created jobs for the alternate backend.
	UseAlternate bool   `yaml:"use_alternate"`
	MaxWidth     int    `yaml:"max_width" validate:"gte=2"`
	MaxHeight    int    `yaml:"max_height" validate:"gte=2"`
	HLSSuffix    string `yaml:"hls_suffix"`
}

type SubtitlesConfig struct {
	DefaultLanguage string `yaml:"default_language" validate:"required"`
	// IgnoreForCompletion lets a job finish while subtitle sub-jobs are still open.
	IgnoreForCompletion bool `yaml:"ignore_for_completion"`
}

type EngineConfig struct {
	SubmitBatchSize    int           `yaml:"submit_batch_size" validate:"gte=1"`
	ReconcileBatchSize int           `yaml:"reconcile_batch_size" validate:"gte=1"`
	QueueBatchSize     int           `yaml:"queue_batch_size" validate:"gte=1"`
	StatusTimeout      time.Duration `yaml:"status_timeout"`
	CompletionTimeout  time.Duration `yaml:"completion_timeout"`
	Concurrency        int           `yaml:"concurrency"`
	Interval           time.Duration `yaml:"interval"`
	MessageRetention   time.Duration `yaml:"message_retention"`
	PrefixCacheTTL     time.Duration `yaml:"prefix_cache_ttl"`
}

type FilesConfig struct {
	Root string `yaml:"root" validate:"required"`
}

type HostConfig struct {
	UnhideURL string        `yaml:"unhide_url" validate:"omitempty,url"`
	APIToken  string        `yaml:"api_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Environment  string        `yaml:"environment"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

// Load reads a YAML config file, expands ${VAR} references, applies environment
// overrides and defaults, then validates the result.
func Load(configPath string) (*Config, error) {
	configPath = os.ExpandEnv(configPath)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.TenantID == "" {
		c.TenantID = c.SiteID
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSDK
	}
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = DefaultHTTPTimeout
	}
	if c.StatusStore.Backend == "" {
		c.StatusStore.Backend = BackendNone
	}
	if c.StatusStore.KeyPrefix == "" {
		c.StatusStore.KeyPrefix = "conversion-status"
	}
	if c.StatusStore.Timeout == 0 {
		c.StatusStore.Timeout = DefaultHTTPTimeout
	}
	if c.Queue.Backend == "" {
		c.Queue.Backend = BackendNone
	}
	if c.Queue.QueueName == "" {
		c.Queue.QueueName = "conversion-status"
	}
	if c.Queue.Timeout == 0 {
		c.Queue.Timeout = DefaultHTTPTimeout
	}
	if c.Transcoder.Backend == "" {
		c.Transcoder.Backend = "mediaconvert"
	}
	if c.Transcoder.AlternateBackend == "" {
		c.Transcoder.AlternateBackend = "ffmpeg"
	}
	if c.Transcoder.MaxWidth == 0 {
		c.Transcoder.MaxWidth = DefaultMaxWidth
	}
	if c.Transcoder.MaxHeight == 0 {
		c.Transcoder.MaxHeight = DefaultMaxHeight
	}
	if c.Transcoder.HLSSuffix == "" {
		c.Transcoder.HLSSuffix = ".m3u8"
	}
	if c.Subtitles.DefaultLanguage == "" {
		c.Subtitles.DefaultLanguage = "en"
	}
	if c.Engine.SubmitBatchSize == 0 {
		c.Engine.SubmitBatchSize = DefaultSubmitBatchSize
	}
	if c.Engine.ReconcileBatchSize == 0 {
		c.Engine.ReconcileBatchSize = DefaultReconcileBatch
	}
	if c.Engine.QueueBatchSize == 0 {
		c.Engine.QueueBatchSize = DefaultQueueBatchSize
	}
	if c.Engine.StatusTimeout == 0 {
		c.Engine.StatusTimeout = DefaultStatusTimeout
	}
	if c.Engine.CompletionTimeout == 0 {
		c.Engine.CompletionTimeout = DefaultCompletionTimeout
	}
	if c.Engine.Concurrency == 0 {
		c.Engine.Concurrency = DefaultConcurrency
	}
	if c.Engine.Interval == 0 {
		c.Engine.Interval = DefaultInterval
	}
	if c.Engine.MessageRetention == 0 {
		c.Engine.MessageRetention = DefaultMessageRetention
	}
	if c.Engine.PrefixCacheTTL == 0 {
		c.Engine.PrefixCacheTTL = DefaultPrefixCacheTTL
	}
	if c.Host.Timeout == 0 {
		c.Host.Timeout = DefaultHTTPTimeout
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 30 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.Environment == "" {
		c.HTTP.Environment = "production"
	}
}
