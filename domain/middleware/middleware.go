// Package middleware provides composable middleware for cache operations.
package middleware

import (
	"context"
	"fmt"
	"strings"
)

// Invocation describes one call of a wrapped operation.
type Invocation struct {
	// Name identifies the operation, e.g. "Cache.Store".
	// Counters and history lists are keyed by it.
	Name string
	// Args are the arguments the operation was called with.
	Args []any
}

// FormatArgs renders the arguments as a parenthesised, comma separated
// list using Go-syntax formatting, e.g. ("a", 42).
func (inv *Invocation) FormatArgs() string {
	parts := make([]string, len(inv.Args))
	for i, a := range inv.Args {
		parts[i] = fmt.Sprintf("%#v", a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Handler executes an operation and returns its result.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Middleware wraps a Handler with additional behavior.
// Middleware can:
// - Execute code before the next handler
// - Execute code after the next handler
// - Short-circuit by not calling next
// - Transform results or errors
type Middleware func(next Handler) Handler

// Chain composes multiple middleware into a single middleware.
// Chain(A, B, C) produces: A -> B -> C -> handler
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// Noop returns a middleware that passes through.
func Noop() Middleware {
	return func(next Handler) Handler {
		return next
	}
}

// Registry manages an ordered collection of middleware.
type Registry struct {
	middlewares []Middleware
}

// NewRegistry creates a registry holding ms in order.
func NewRegistry(ms ...Middleware) *Registry {
	r := &Registry{}
	return r.Use(ms...)
}

// Use appends middleware. Middleware run in the order they are added.
func (r *Registry) Use(ms ...Middleware) *Registry {
	for _, m := range ms {
		if m != nil {
			r.middlewares = append(r.middlewares, m)
		}
	}
	return r
}

// Len returns the number of registered middleware.
func (r *Registry) Len() int {
	return len(r.middlewares)
}

// Wrap applies the registered chain to h.
func (r *Registry) Wrap(h Handler) Handler {
	if len(r.middlewares) == 0 {
		return h
	}
	return Chain(r.middlewares...)(h)
}
