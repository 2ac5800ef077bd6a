// Package middleware provides invocation middleware backed by a key-value
// store: call counters, call history, logging and metrics.
package middleware

import (
	"context"

	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/domain/middleware"
)

// CountCalls returns middleware that increments the counter stored under
// the invocation name before running the operation.
// If the increment fails the operation is not run.
func CountCalls(store kv.Store) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
			if _, err := store.Incr(ctx, inv.Name); err != nil {
				return nil, err
			}
			return next(ctx, inv)
		}
	}
}
