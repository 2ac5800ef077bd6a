package config

import (
	"fmt"
	"strings"
	"time"
)

// MinPageTTL is the shortest page TTL accepted. Stores keep expiry with
// one-second resolution.
const MinPageTTL = time.Second

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateBackend(config)
	v.validateMongoDB(config)
	v.validatePage(config)
	v.validateFetch(config)
	v.validateLogging(config)
	v.validateTracing(config)
	v.validateMetrics(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateBackend(config *Config) {
	validBackends := map[string]bool{"redis": true, "memory": true, "badger": true}
	if !validBackends[config.Backend] {
		v.addError("backend", fmt.Sprintf("invalid backend: %q", config.Backend))
		return
	}

	switch config.Backend {
	case "redis":
		if config.Redis.Address == "" {
			v.addError("redis.address", "address is required for the redis backend")
		}
		if config.Redis.DB < 0 {
			v.addError("redis.db", "db must be non-negative")
		}
		if config.Redis.PoolSize < 0 {
			v.addError("redis.pool_size", "pool_size must be non-negative")
		}
	case "badger":
		if config.Badger.Dir == "" && !config.Badger.InMemory {
			v.addError("badger.dir", "dir is required unless in_memory is set")
		}
	}
}

func (v *Validator) validateMongoDB(config *Config) {
	m := config.MongoDB
	if m.URI != "" && !strings.HasPrefix(m.URI, "mongodb://") && !strings.HasPrefix(m.URI, "mongodb+srv://") {
		v.addError("mongodb.uri", "uri must start with mongodb:// or mongodb+srv://")
	}
	if m.ConnectTimeout < 0 {
		v.addError("mongodb.connect_timeout", "connect_timeout must be non-negative")
	}
	if m.QueryTimeout < 0 {
		v.addError("mongodb.query_timeout", "query_timeout must be non-negative")
	}
}

func (v *Validator) validatePage(config *Config) {
	if config.Page.TTL.Duration() < MinPageTTL {
		v.addError("page.ttl", fmt.Sprintf("ttl must be at least %s", MinPageTTL))
	}
	if config.Page.CountPrefix == "" {
		v.addError("page.count_prefix", "count_prefix must not be empty")
	}
}

func (v *Validator) validateFetch(config *Config) {
	if config.Fetch.Timeout < 0 {
		v.addError("fetch.timeout", "timeout must be non-negative")
	}
	if config.Fetch.MaxConcurrent < 0 {
		v.addError("fetch.max_concurrent", "max_concurrent must be non-negative")
	}
	if config.Fetch.MaxQueue < 0 {
		v.addError("fetch.max_queue", "max_queue must be non-negative")
	}
}

func (v *Validator) validateLogging(config *Config) {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if l := config.Logging.Level; l != "" && !validLevels[strings.ToLower(l)] {
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", l))
	}
	if f := config.Logging.Format; f != "" && f != "json" && f != "console" {
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", f))
	}
}

func (v *Validator) validateTracing(config *Config) {
	t := config.Tracing
	switch t.Exporter {
	case "", "noop", "stdout":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("tracing.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("tracing.exporter", fmt.Sprintf("invalid exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}

func (v *Validator) validateMetrics(config *Config) {
	m := config.Metrics
	switch m.Exporter {
	case "", "noop":
	case "otlp":
		if m.Endpoint == "" {
			v.addError("metrics.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("metrics.exporter", fmt.Sprintf("invalid exporter: %s", m.Exporter))
	}
	if m.Interval < 0 {
		v.addError("metrics.interval", "interval must be non-negative")
	}
}
