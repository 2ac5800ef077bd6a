package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/nosql/domain/kv"
	"github.com/felixgeelhaar/nosql/domain/middleware"
)

// InputsKey returns the list key holding the inputs recorded for name.
func InputsKey(name string) string {
	return name + ":inputs"
}

// OutputsKey returns the list key holding the outputs recorded for name.
func OutputsKey(name string) string {
	return name + ":outputs"
}

// CallHistory returns middleware that appends the formatted arguments to
// the inputs list before the call and the formatted result to the outputs
// list after it. A failed call leaves its input without a matching output.
func CallHistory(store kv.Store) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
			if _, err := store.RPush(ctx, InputsKey(inv.Name), []byte(inv.FormatArgs())); err != nil {
				return nil, err
			}

			result, err := next(ctx, inv)
			if err != nil {
				return result, err
			}

			if _, err := store.RPush(ctx, OutputsKey(inv.Name), []byte(fmt.Sprintf("%v", result))); err != nil {
				return result, err
			}
			return result, nil
		}
	}
}
