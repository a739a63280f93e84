package logging

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

var base atomic.Pointer[zerolog.Logger]

// New builds the service logger and installs it as the fallback for FromContext.
// Production writes JSON at info level; other environments get console output at debug.
func New(appName, env string) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
	level := zerolog.DebugLevel
	if env == "production" {
		out = os.Stdout
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger()
	SetBase(logger)
	return logger
}

// SetBase replaces the logger FromContext returns when ctx carries none.
func SetBase(logger zerolog.Logger) {
	base.Store(&logger)
}

// Base returns the installed service logger, or a no-op logger before New runs.
func Base() zerolog.Logger {
	if l := base.Load(); l != nil {
		return *l
	}
	return zerolog.Nop()
}

// FromContext returns the request-scoped logger, falling back to Base.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return Base()
}

// IntoContext attaches logger to ctx.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
