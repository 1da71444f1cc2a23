package http

import (
	"context"
	"log/slog"

	"github.com/viralforge/intranet/credential-service/internal/domain"
)

const serviceName = "credential-service"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// requestLogger tags every record with the request id set by requestIDMiddleware.
func requestLogger(ctx context.Context) *slog.Logger {
	return httpLogger().With("request_id", requestIDFromContext(ctx))
}

// levelForStatus maps 5xx to error and 4xx to warn.
func levelForStatus(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func logHTTPOperationError(ctx context.Context, operation string, statusCode int, outcome domain.Outcome, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", string(outcome.Code),
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	level := levelForStatus(statusCode)
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	requestLogger(ctx).Log(ctx, level, "http operation failed", fields...)
}
