package passbridge

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger stores a request-scoped logger inside the context for
// the converter and dispatcher to pick up.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext retrieves a logger previously stored in the context,
// falling back to fallback and then to slog.Default.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
