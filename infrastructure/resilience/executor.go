// Package resilience provides resilient execution patterns using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
)

// Executor runs operations behind a bulkhead and a timeout. Calls beyond
// MaxConcurrent wait in the bulkhead queue; they are only rejected when the
// queue itself is full.
type Executor[T any] struct {
	bulkhead bulkhead.Bulkhead[T]
	timeout  time.Duration
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent executions.
	MaxConcurrent int

	// MaxQueue is how many calls may wait for a slot. Zero rejects every
	// call made while MaxConcurrent calls are running.
	MaxQueue int

	// QueueTimeout bounds the wait for a slot. Zero waits until the
	// caller's context ends.
	QueueTimeout time.Duration

	// DefaultTimeout bounds each execution once it has a slot. Zero means
	// no timeout.
	DefaultTimeout time.Duration
}

// DefaultExecutorConfig returns the default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:  10,
		MaxQueue:       1024,
		DefaultTimeout: 30 * time.Second,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor[T any](config ExecutorConfig) *Executor[T] {
	defaults := DefaultExecutorConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.MaxQueue < 0 {
		config.MaxQueue = 0
	}

	return &Executor[T]{
		bulkhead: bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
			MaxQueue:      config.MaxQueue,
			QueueTimeout:  config.QueueTimeout,
		}),
		timeout: config.DefaultTimeout,
	}
}

// Execute runs fn inside the bulkhead. The timeout starts once fn holds a
// slot, so time spent queued does not count against it.
func (e *Executor[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (T, error) {
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
		return fn(ctx)
	})
}

// Close stops the bulkhead queue worker. Calls must not be in flight.
func (e *Executor[T]) Close() error {
	return e.bulkhead.Close()
}
