// Package config provides domain models for nosql configuration.
package config

import "time"

// Config represents the complete configuration.
type Config struct {
	// Backend selects the key-value store (redis, memory, badger).
	Backend string `json:"backend" yaml:"backend"`

	// Redis contains Redis connection settings.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	// Badger contains embedded store settings.
	Badger BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
	// MongoDB contains document store settings.
	MongoDB MongoDBConfig `json:"mongodb,omitempty" yaml:"mongodb,omitempty"`
	// Page contains page cache settings.
	Page PageConfig `json:"page,omitempty" yaml:"page,omitempty"`
	// Fetch contains HTTP fetcher settings.
	Fetch FetchConfig `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	// Logging contains logger settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Tracing contains span export settings.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// Metrics contains metric export settings.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Address is host:port.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password is the AUTH password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB is the database number.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// KeyPrefix namespaces every key. Empty keeps keys as written.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// PoolSize is the connection pool size.
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	// DialTimeout bounds connection setup.
	DialTimeout Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
}

// BadgerConfig contains embedded store settings.
type BadgerConfig struct {
	// Dir is the data directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// InMemory keeps data in memory only.
	InMemory bool `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
	// SyncWrites fsyncs every write.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
	// KeyPrefix namespaces every key.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// MongoDBConfig contains document store settings.
type MongoDBConfig struct {
	// URI is the connection string.
	URI string `json:"uri,omitempty" yaml:"uri,omitempty"`
	// Database is the database name.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Collection is the school collection.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	// ConnectTimeout bounds the initial connection.
	ConnectTimeout Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	// QueryTimeout bounds each query.
	QueryTimeout Duration `json:"query_timeout,omitempty" yaml:"query_timeout,omitempty"`
}

// PageConfig contains page cache settings.
type PageConfig struct {
	// TTL is how long fetched pages stay cached.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// CountPrefix prefixes the access counter keys.
	CountPrefix string `json:"count_prefix,omitempty" yaml:"count_prefix,omitempty"`
}

// FetchConfig contains HTTP fetcher settings.
type FetchConfig struct {
	// Timeout bounds a single fetch.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// MaxConcurrent limits in-flight fetches.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// MaxQueue is how many fetches may wait for a free slot.
	MaxQueue int `json:"max_queue,omitempty" yaml:"max_queue,omitempty"`
	// UserAgent is the User-Agent header value.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TracingConfig contains span export settings.
type TracingConfig struct {
	// Exporter is noop, stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS to the collector.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the fraction of traces kept.
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// MetricsConfig contains metric export settings.
type MetricsConfig struct {
	// Exporter is noop or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS to the collector.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// Interval is how often metrics are pushed.
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend: "redis",
		Redis: RedisConfig{
			Address:     "localhost:6379",
			PoolSize:    10,
			DialTimeout: Duration(5 * time.Second),
		},
		Badger: BadgerConfig{
			Dir: "./data/nosql",
		},
		MongoDB: MongoDBConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "nosql",
			Collection:     "schools",
			ConnectTimeout: Duration(10 * time.Second),
			QueryTimeout:   Duration(30 * time.Second),
		},
		Page: PageConfig{
			TTL:         Duration(10 * time.Second),
			CountPrefix: "count:",
		},
		Fetch: FetchConfig{
			Timeout:       Duration(30 * time.Second),
			MaxConcurrent: 10,
			MaxQueue:      1024,
			UserAgent:     "nosql-page-cache/1.0",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Tracing: TracingConfig{
			Exporter:   "noop",
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Exporter: "noop",
			Interval: Duration(10 * time.Second),
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
