package config

import (
	"errors"
	"testing"
	"time"

	domainconfig "github.com/felixgeelhaar/nosql/domain/config"
	"github.com/felixgeelhaar/nosql/infrastructure/storage/memory"
	"github.com/felixgeelhaar/nosql/infrastructure/telemetry"
)

func TestBuilder_NilUsesDefaults(t *testing.T) {
	t.Parallel()

	b := NewBuilder(nil)
	if b.Config().Backend != "redis" {
		t.Errorf("Backend = %q, want redis", b.Config().Backend)
	}
}

func TestBuilder_Settings(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.Default()
	cfg.Redis.Address = "redis:6380"
	cfg.Redis.KeyPrefix = "app:"
	cfg.Redis.DB = 2
	cfg.Badger.Dir = "/data"
	cfg.Badger.KeyPrefix = "b:"
	cfg.MongoDB.Collection = "school"
	cfg.MongoDB.QueryTimeout = domainconfig.Duration(time.Second)
	cfg.Fetch.MaxConcurrent = 3
	cfg.Fetch.UserAgent = "ua"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	b := NewBuilder(cfg)

	r := b.Redis()
	if r.Address != "redis:6380" || r.KeyPrefix != "app:" || r.DB != 2 {
		t.Errorf("Redis() = %+v", r)
	}
	if r.DialTimeout != 5*time.Second {
		t.Errorf("Redis().DialTimeout = %v, want 5s", r.DialTimeout)
	}

	bg := b.Badger()
	if bg.Dir != "/data" || bg.KeyPrefix != "b:" || bg.MaxTxnRetries == 0 {
		t.Errorf("Badger() = %+v", bg)
	}

	m := b.MongoDB()
	if m.Collection != "school" || m.QueryTimeout != time.Second || m.Database != "nosql" {
		t.Errorf("MongoDB() = %+v", m)
	}

	f := b.Fetch()
	if f.MaxConcurrent != 3 || f.UserAgent != "ua" || f.Timeout != 30*time.Second {
		t.Errorf("Fetch() = %+v", f)
	}

	l := b.Logging()
	if l.Level != "debug" || l.Format != "json" || l.Output == nil {
		t.Errorf("Logging() = %+v", l)
	}
}

func TestBuilder_Tracing(t *testing.T) {
	t.Parallel()

	if got := NewBuilder(nil).Tracing(); got.Exporter != telemetry.ExporterNoop || got.SampleRate != 1.0 {
		t.Errorf("default Tracing() = %+v", got)
	}

	cfg := domainconfig.Default()
	cfg.Tracing = domainconfig.TracingConfig{Exporter: "otlp", Endpoint: "collector:4317", Insecure: true, SampleRate: 0.25}
	got := NewBuilder(cfg).Tracing()
	if got.Exporter != telemetry.ExporterOTLP || got.Endpoint != "collector:4317" || !got.Insecure || got.SampleRate != 0.25 {
		t.Errorf("Tracing() = %+v", got)
	}
	if got.ServiceName != "nosql" {
		t.Errorf("ServiceName = %q, want nosql", got.ServiceName)
	}
}

func TestBuilder_Metrics(t *testing.T) {
	t.Parallel()

	if got := NewBuilder(nil).Metrics(); got.Exporter != telemetry.ExporterNoop || got.Interval != 10*time.Second {
		t.Errorf("default Metrics() = %+v", got)
	}

	cfg := domainconfig.Default()
	cfg.Metrics = domainconfig.MetricsConfig{
		Exporter: "otlp",
		Endpoint: "collector:4317",
		Insecure: true,
		Interval: domainconfig.Duration(time.Minute),
	}
	got := NewBuilder(cfg).Metrics()
	if got.Exporter != telemetry.ExporterOTLP || got.Endpoint != "collector:4317" || !got.Insecure || got.Interval != time.Minute {
		t.Errorf("Metrics() = %+v", got)
	}
}

func TestBuilder_OpenStore(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.Default()
	cfg.Backend = "memory"
	store, err := NewBuilder(cfg).OpenStore()
	if err != nil {
		t.Fatalf("OpenStore(memory) error = %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Errorf("OpenStore(memory) = %T", store)
	}

	cfg = domainconfig.Default()
	cfg.Backend = "badger"
	cfg.Badger.InMemory = true
	cfg.Badger.Dir = ""
	store, err = NewBuilder(cfg).OpenStore()
	if err != nil {
		t.Fatalf("OpenStore(badger) error = %v", err)
	}
	_ = store.Close()

	cfg.Backend = "etcd"
	if _, err := NewBuilder(cfg).OpenStore(); !errors.Is(err, domainconfig.ErrBuildFailed) {
		t.Errorf("OpenStore(etcd) error = %v, want ErrBuildFailed", err)
	}
}
