package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics creates a provider backed by a manual reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := metric.NewManualReader()
	cfg := DefaultMetricsConfig()
	cfg.MeterProvider = metric.NewMeterProvider(metric.WithReader(reader))

	mp := NewMetricsProvider(cfg)
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}
	t.Cleanup(func() { _ = reader.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func histogramCount(t *testing.T, data metricdata.Aggregation) uint64 {
	t.Helper()

	h, ok := data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", data)
	}
	var count uint64
	for _, dp := range h.DataPoints {
		count += dp.Count
	}
	return count
}

func TestNewMetricsProvider(t *testing.T) {
	t.Parallel()

	_, mp := setupTestMetrics(t)
	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
}

func TestMetricsProvider_RecordInvocation(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordInvocation(ctx, "Cache.Store", true, 2*time.Millisecond)
	mp.RecordInvocation(ctx, "Cache.Store", false, time.Millisecond)

	got := collect(t, reader)
	if n := sumOf(t, got["nosql.invocations"]); n != 2 {
		t.Errorf("nosql.invocations = %d, want 2", n)
	}
	if n := histogramCount(t, got["nosql.invocation.duration"]); n != 2 {
		t.Errorf("nosql.invocation.duration count = %d, want 2", n)
	}
	if n := sumOf(t, got["nosql.errors"]); n != 1 {
		t.Errorf("nosql.errors = %d, want 1", n)
	}
}

func TestMetricsProvider_RecordPageRequest(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordPageRequest(ctx, false)
	mp.RecordPageRequest(ctx, true)
	mp.RecordPageRequest(ctx, true)

	got := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"nosql.page.requests", 3},
		{"nosql.page.cache_hits", 2},
		{"nosql.page.cache_misses", 1},
	}
	for _, tt := range tests {
		if n := sumOf(t, got[tt.name]); n != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, n, tt.want)
		}
	}
}

func TestMetricsProvider_RecordFetch(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordFetch(ctx, 200, 15*time.Millisecond)
	mp.RecordFetch(ctx, 0, time.Millisecond)

	got := collect(t, reader)
	if n := histogramCount(t, got["nosql.fetch.duration"]); n != 2 {
		t.Errorf("nosql.fetch.duration count = %d, want 2", n)
	}
	if n := sumOf(t, got["nosql.errors"]); n != 1 {
		t.Errorf("nosql.errors = %d, want 1", n)
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetricsProvider{}
	ctx := context.Background()

	// Should not panic.
	m.RecordInvocation(ctx, "x", true, time.Second)
	m.RecordPageRequest(ctx, true)
	m.RecordFetch(ctx, 200, time.Second)
	m.RecordError(ctx, "x", map[string]string{"k": "v"})
}

func TestDefaultMetricsConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultMetricsConfig()
	if cfg.MeterName != "github.com/felixgeelhaar/nosql" {
		t.Errorf("MeterName = %q", cfg.MeterName)
	}
	if cfg.MeterProvider != nil {
		t.Error("MeterProvider should default to nil")
	}
}
