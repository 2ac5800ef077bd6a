package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/nosql/domain/middleware"
)

// Tracing creates a middleware that wraps every invocation in a span named
// after the operation. A nil tracer disables tracing.
func Tracing(tracer trace.Tracer) middleware.Middleware {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
			ctx, span := tracer.Start(ctx, inv.Name,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("operation.name", inv.Name),
					attribute.Int("operation.args", len(inv.Args)),
				),
			)
			defer span.End()

			result, err := next(ctx, inv)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.SetAttributes(attribute.String("operation.status", "error"))
			} else {
				span.SetStatus(codes.Ok, "")
				span.SetAttributes(attribute.String("operation.status", "success"))
			}
			return result, err
		}
	}
}
