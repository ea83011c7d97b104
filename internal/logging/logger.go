package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// FromContext returns the request logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return zerolog.Nop()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

type loggerKey struct{}

// New builds the process logger. Production emits JSON lines; other
// environments get a human readable console writer at debug level.
func New(appName, env string) zerolog.Logger {
	return newWithWriter(os.Stdout, appName, env)
}

func newWithWriter(w io.Writer, appName, env string) zerolog.Logger {
	level := zerolog.DebugLevel
	out := w
	if env == "production" {
		level = zerolog.InfoLevel
	} else {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339Nano,
		}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger()
}

// IntoContext injects a logger into context for downstream use.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
