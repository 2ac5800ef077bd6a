package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/nosql/domain/middleware"
	"github.com/felixgeelhaar/nosql/infrastructure/telemetry"
)

// MetricsConfig configures the metrics middleware.
type MetricsConfig struct {
	// Provider is the metrics provider to use.
	Provider telemetry.Metrics
}

// Metrics creates a middleware that records a call count and duration for
// every invocation.
//
// Example:
//
//	provider := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
//	c, _ := cache.New(ctx, store, cache.WithMiddleware(
//	    middleware.Metrics(middleware.MetricsConfig{Provider: provider}),
//	))
func Metrics(config MetricsConfig) middleware.Middleware {
	if config.Provider == nil {
		config.Provider = telemetry.NoopMetricsProvider{}
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
			start := time.Now()
			result, err := next(ctx, inv)
			config.Provider.RecordInvocation(ctx, inv.Name, err == nil, time.Since(start))
			return result, err
		}
	}
}
