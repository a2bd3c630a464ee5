package debugctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// DebugLevel is the logr verbosity used for request-level tracing.
const DebugLevel = 1

type enabledKey struct{}

func WithEnabled(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, enabledKey{}, enabled)
}

func Enabled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	enabled, _ := ctx.Value(enabledKey{}).(bool)
	return enabled
}

// WithLogger stores logger in ctx so that engine components can pick it up
// without threading it through every call.
func WithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// FromContext returns the logger carried by ctx or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	if ctx == nil {
		return logr.Discard()
	}
	logger, err := logr.FromContext(ctx)
	if err != nil {
		return logr.Discard()
	}
	return logger
}

func Printf(ctx context.Context, format string, args ...any) {
	if !Enabled(ctx) {
		return
	}

	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		return
	}

	FromContext(ctx).V(DebugLevel).Info("debug: " + message)
}
