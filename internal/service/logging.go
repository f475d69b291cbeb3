package service

import (
	"context"
	"log/slog"
)

func serviceLogger(base *slog.Logger, operation string, attrs ...any) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	pairs := []any{"service", "reservation", "operation", operation}
	pairs = append(pairs, attrs...)
	return base.With(pairs...)
}

// logResult records the outcome of an engine operation.  Expected business
// outcomes (full slot, duplicate order) log at info; infrastructure failures
// at error.
func logResult(ctx context.Context, logger *slog.Logger, err error, attrs ...any) {
	if err == nil {
		logger.InfoContext(ctx, "operation succeeded", attrs...)
		return
	}
	kind := ErrorKind(err)
	attrs = append(attrs, "kind", kind, "err", err)
	switch kind {
	case "transaction_failed", "unexpected":
		logger.ErrorContext(ctx, "operation failed", attrs...)
	default:
		logger.InfoContext(ctx, "operation rejected", attrs...)
	}
}
