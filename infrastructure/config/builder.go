package config

import (
	"context"
	"fmt"

	domainconfig "github.com/felixgeelhaar/nosql/domain/config"
	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/infrastructure/fetch"
	"github.com/felixgeelhaar/nosql/infrastructure/logging"
	badgerstore "github.com/felixgeelhaar/nosql/infrastructure/storage/badger"
	"github.com/felixgeelhaar/nosql/infrastructure/storage/memory"
	"github.com/felixgeelhaar/nosql/infrastructure/storage/mongodb"
	redisstore "github.com/felixgeelhaar/nosql/infrastructure/storage/redis"
	"github.com/felixgeelhaar/nosql/infrastructure/telemetry"
)

// Builder turns configuration into infrastructure settings and clients.
type Builder struct {
	config *domainconfig.Config
}

// NewBuilder creates a new configuration builder. A nil config uses the
// defaults.
func NewBuilder(config *domainconfig.Config) *Builder {
	if config == nil {
		config = domainconfig.Default()
	}
	return &Builder{config: config}
}

// Config returns the configuration the builder reads from.
func (b *Builder) Config() *domainconfig.Config {
	return b.config
}

// Logging returns the logger configuration.
func (b *Builder) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if b.config.Logging.Level != "" {
		cfg.Level = b.config.Logging.Level
	}
	if b.config.Logging.Format != "" {
		cfg.Format = b.config.Logging.Format
	}
	return cfg
}

// Redis returns the Redis store configuration.
func (b *Builder) Redis() redisstore.Config {
	src := b.config.Redis
	cfg := redisstore.DefaultConfig()
	if src.Address != "" {
		cfg.Address = src.Address
	}
	cfg.Password = src.Password
	cfg.DB = src.DB
	cfg.KeyPrefix = src.KeyPrefix
	if src.PoolSize > 0 {
		cfg.PoolSize = src.PoolSize
	}
	if src.DialTimeout > 0 {
		cfg.DialTimeout = src.DialTimeout.Duration()
	}
	return cfg
}

// Badger returns the embedded store configuration.
func (b *Builder) Badger() badgerstore.Config {
	src := b.config.Badger
	cfg := badgerstore.DefaultConfig()
	cfg.Dir = src.Dir
	cfg.InMemory = src.InMemory
	cfg.SyncWrites = src.SyncWrites
	cfg.KeyPrefix = src.KeyPrefix
	return cfg
}

// MongoDB returns the document store configuration.
func (b *Builder) MongoDB() mongodb.Config {
	src := b.config.MongoDB
	cfg := mongodb.DefaultConfig()
	if src.URI != "" {
		cfg.URI = src.URI
	}
	if src.Database != "" {
		cfg.Database = src.Database
	}
	if src.Collection != "" {
		cfg.Collection = src.Collection
	}
	if src.ConnectTimeout > 0 {
		cfg.ConnectTimeout = src.ConnectTimeout.Duration()
	}
	if src.QueryTimeout > 0 {
		cfg.QueryTimeout = src.QueryTimeout.Duration()
	}
	return cfg
}

// Fetch returns the HTTP fetcher configuration.
func (b *Builder) Fetch() fetch.Config {
	src := b.config.Fetch
	cfg := fetch.DefaultConfig()
	if src.Timeout > 0 {
		cfg.Timeout = src.Timeout.Duration()
	}
	if src.MaxConcurrent > 0 {
		cfg.MaxConcurrent = src.MaxConcurrent
	}
	if src.MaxQueue > 0 {
		cfg.MaxQueue = src.MaxQueue
	}
	if src.UserAgent != "" {
		cfg.UserAgent = src.UserAgent
	}
	return cfg
}

// Tracing returns the tracer provider configuration.
func (b *Builder) Tracing() telemetry.TracingConfig {
	src := b.config.Tracing
	cfg := telemetry.DefaultTracingConfig()
	if src.Exporter != "" {
		cfg.Exporter = telemetry.ExporterType(src.Exporter)
	}
	cfg.Endpoint = src.Endpoint
	cfg.Insecure = src.Insecure
	if src.SampleRate > 0 {
		cfg.SampleRate = src.SampleRate
	}
	return cfg
}

// Metrics returns the metric export configuration.
func (b *Builder) Metrics() telemetry.MetricsExportConfig {
	src := b.config.Metrics
	cfg := telemetry.DefaultMetricsExportConfig()
	if src.Exporter != "" {
		cfg.Exporter = telemetry.ExporterType(src.Exporter)
	}
	cfg.Endpoint = src.Endpoint
	cfg.Insecure = src.Insecure
	if src.Interval > 0 {
		cfg.Interval = src.Interval.Duration()
	}
	return cfg
}

// OpenStore opens the configured key-value backend.
func (b *Builder) OpenStore() (kv.Store, error) {
	switch backend := kv.Backend(b.config.Backend); backend {
	case kv.BackendRedis:
		s, err := redisstore.NewStore(b.Redis())
		if err != nil {
			return nil, fmt.Errorf("%w: redis: %w", domainconfig.ErrBuildFailed, err)
		}
		return s, nil
	case kv.BackendBadger:
		s, err := badgerstore.NewStore(b.Badger())
		if err != nil {
			return nil, fmt.Errorf("%w: badger: %w", domainconfig.ErrBuildFailed, err)
		}
		return s, nil
	case kv.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domainconfig.ErrBuildFailed, backend)
	}
}

// OpenSchoolStore connects to MongoDB and returns the school store along
// with the client that must be closed when done.
func (b *Builder) OpenSchoolStore(ctx context.Context) (*mongodb.SchoolStore, *mongodb.Client, error) {
	client, err := mongodb.NewClient(ctx, b.MongoDB())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mongodb: %w", domainconfig.ErrBuildFailed, err)
	}
	return mongodb.NewSchoolStore(client), client, nil
}
