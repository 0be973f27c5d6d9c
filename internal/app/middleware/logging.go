package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentcal/internal/app/commands"
)

// Logging logs every command with its duration. Failures are logged at Warn.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		return nil
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			if err != nil {
				logger.WarnContext(ctx, "command failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.DebugContext(ctx, "command handled", attrs...)
			return res, nil
		})
	}
}
