package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nosql/domain/middleware"
	"github.com/felixgeelhaar/nosql/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogInput logs the formatted arguments (may contain sensitive data).
	LogInput bool
	// LogOutput logs the result (may be large).
	LogOutput bool
}

const maxLoggedOutput = 500

// Logging returns middleware that logs each invocation at debug level and
// failures at error level.
func Logging(cfg LoggingConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, inv *middleware.Invocation) (any, error) {
			start := time.Now()

			entry := logging.Debug().Add(logging.Operation(inv.Name))
			if cfg.LogInput {
				entry = entry.Add(logging.Str("input", inv.FormatArgs()))
			}
			entry.Msg("invoking operation")

			result, err := next(ctx, inv)
			duration := time.Since(start)

			if err != nil {
				logging.Error().
					Add(logging.Operation(inv.Name)).
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("operation failed")
				return result, err
			}

			done := logging.Debug().
				Add(logging.Operation(inv.Name)).
				Add(logging.Duration(duration))
			if cfg.LogOutput {
				output := fmt.Sprintf("%v", result)
				if len(output) > maxLoggedOutput {
					output = output[:maxLoggedOutput] + "..."
				}
				done = done.Add(logging.Str("output", output))
			}
			done.Msg("operation completed")

			return result, nil
		}
	}
}
