// Package telemetry provides OpenTelemetry metrics for cache operations,
// page lookups and HTTP fetches.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	invocations metric.Int64Counter
	pageReqs    metric.Int64Counter
	pageHits    metric.Int64Counter
	pageMisses  metric.Int64Counter
	errors      metric.Int64Counter

	// Histograms
	invocationDuration metric.Float64Histogram
	fetchDuration      metric.Float64Histogram

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/nosql").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider overrides the global meter provider when set.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/nosql",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a metrics provider. Instruments are created on
// config.MeterProvider, or on the global meter provider when it is nil.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}

	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{meter: meter}
	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&mp.invocations, "nosql.invocations", "Number of wrapped operation calls", "{call}"},
		{&mp.pageReqs, "nosql.page.requests", "Number of page lookups", "{request}"},
		{&mp.pageHits, "nosql.page.cache_hits", "Number of page lookups served from cache", "{hit}"},
		{&mp.pageMisses, "nosql.page.cache_misses", "Number of page lookups that fetched", "{miss}"},
		{&mp.errors, "nosql.errors", "Number of errors", "{error}"},
	}
	for _, c := range counters {
		*c.dst, err = mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return err
		}
	}

	mp.invocationDuration, err = mp.meter.Float64Histogram(
		"nosql.invocation.duration",
		metric.WithDescription("Duration of wrapped operation calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.fetchDuration, err = mp.meter.Float64Histogram(
		"nosql.fetch.duration",
		metric.WithDescription("Duration of HTTP page fetches"),
		metric.WithUnit("ms"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordInvocation records one call of a wrapped operation.
func (mp *MetricsProvider) RecordInvocation(ctx context.Context, name string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", name),
		attribute.Bool("success", success),
	)
	mp.invocations.Add(ctx, 1, attrs)
	mp.invocationDuration.Record(ctx, milliseconds(duration), attrs)

	if !success {
		mp.RecordError(ctx, "invocation", map[string]string{"operation": name})
	}
}

// RecordPageRequest records a page lookup and whether it was a cache hit.
func (mp *MetricsProvider) RecordPageRequest(ctx context.Context, cached bool) {
	mp.pageReqs.Add(ctx, 1)
	if cached {
		mp.pageHits.Add(ctx, 1)
	} else {
		mp.pageMisses.Add(ctx, 1)
	}
}

// RecordFetch records an HTTP fetch. status is 0 when no response arrived.
func (mp *MetricsProvider) RecordFetch(ctx context.Context, status int, duration time.Duration) {
	mp.fetchDuration.Record(ctx, milliseconds(duration), metric.WithAttributes(
		attribute.Int("http.status_code", status),
	))
	if status == 0 {
		mp.RecordError(ctx, "fetch", nil)
	}
}

// RecordError records an error.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
	attrs := []attribute.KeyValue{
		attribute.String("error.type", errorType),
	}
	for k, v := range details {
		attrs = append(attrs, attribute.String(k, v))
	}
	mp.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordInvocation is a no-op.
func (NoopMetricsProvider) RecordInvocation(context.Context, string, bool, time.Duration) {}

// RecordPageRequest is a no-op.
func (NoopMetricsProvider) RecordPageRequest(context.Context, bool) {}

// RecordFetch is a no-op.
func (NoopMetricsProvider) RecordFetch(context.Context, int, time.Duration) {}

// RecordError is a no-op.
func (NoopMetricsProvider) RecordError(context.Context, string, map[string]string) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordInvocation(ctx context.Context, name string, success bool, duration time.Duration)
	RecordPageRequest(ctx context.Context, cached bool)
	RecordFetch(ctx context.Context, status int, duration time.Duration)
	RecordError(ctx context.Context, errorType string, details map[string]string)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
