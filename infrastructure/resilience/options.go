package resilience

import "time"

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent executions.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithMaxQueue sets how many calls may wait for a slot.
func WithMaxQueue(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxQueue = n
	}
}

// WithQueueTimeout bounds the wait for a slot.
func WithQueueTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.QueueTimeout = d
	}
}

// WithTimeout sets the default execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.DefaultTimeout = d
	}
}

// NewExecutorWithOptions creates an executor with the given options.
func NewExecutorWithOptions[T any](opts ...Option) *Executor[T] {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor[T](config)
}
