package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// MetricsExportConfig configures where recorded metrics are sent.
type MetricsExportConfig struct {
	ServiceName    string
	ServiceVersion string

	// Exporter is ExporterNoop or ExporterOTLP.
	Exporter ExporterType
	// Endpoint is the OTLP collector address (host:port).
	Endpoint string
	Insecure bool
	// Interval is how often metrics are pushed.
	Interval time.Duration
}

// DefaultMetricsExportConfig returns a configuration with export disabled.
func DefaultMetricsExportConfig() MetricsExportConfig {
	return MetricsExportConfig{
		ServiceName:    "nosql",
		ServiceVersion: "0.1.0",
		Exporter:       ExporterNoop,
		Interval:       10 * time.Second,
	}
}

// MeterProvider owns the SDK meter provider and its periodic reader.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.MeterProvider
}

// NewMeterProvider builds a meter provider from cfg. With an OTLP exporter
// it is installed as the global provider and pushes on cfg.Interval; with
// ExporterNoop it hands out no-op meters.
func NewMeterProvider(ctx context.Context, cfg MetricsExportConfig) (*MeterProvider, error) {
	switch cfg.Exporter {
	case "", ExporterNoop:
		return &MeterProvider{meter: noop.NewMeterProvider()}, nil
	case ExporterOTLP:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts,
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlpmetricgrpc.WithInsecure(),
		)
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultMetricsExportConfig().Interval
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(newResource(cfg.ServiceName, cfg.ServiceVersion)),
	)
	otel.SetMeterProvider(mp)

	return &MeterProvider{provider: mp, meter: mp}, nil
}

// Provider returns the meter provider to create instruments on.
func (p *MeterProvider) Provider() metric.MeterProvider {
	return p.meter
}

// Enabled reports whether metrics are exported.
func (p *MeterProvider) Enabled() bool {
	return p.provider != nil
}

// Shutdown pushes pending metrics and stops the exporter.
func (p *MeterProvider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
