package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	domainmw "github.com/felixgeelhaar/nosql/domain/middleware"
	mw "github.com/felixgeelhaar/nosql/infrastructure/middleware"
)

func TestTracing(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	boom := errors.New("boom")
	h := mw.Tracing(tp.Tracer("test"))(func(_ context.Context, inv *domainmw.Invocation) (any, error) {
		if inv.Args[0] == "fail" {
			return nil, boom
		}
		return "ok", nil
	})

	ctx := context.Background()
	if _, err := h(ctx, &domainmw.Invocation{Name: "Cache.Store", Args: []any{"a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h(ctx, &domainmw.Invocation{Name: "Cache.Store", Args: []any{"fail"}}); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "Cache.Store" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("first span status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("second span status = %v, want Error", spans[1].Status().Code)
	}
	if len(spans[1].Events()) == 0 {
		t.Error("failed span should record the error event")
	}
}

func TestTracing_NilTracer(t *testing.T) {
	t.Parallel()

	h := mw.Tracing(nil)(echo)
	got, err := h(context.Background(), &domainmw.Invocation{Name: "op", Args: []any{1}})
	if err != nil || got != 1 {
		t.Errorf("got %v, %v", got, err)
	}
}
