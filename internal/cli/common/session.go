package common

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/crmarques/hypersync/core"
	"github.com/crmarques/hypersync/debugctx"
	"github.com/crmarques/hypersync/graph"
)

// Connection is a session whose API root has been loaded, plus whatever
// the command started alongside it.
type Connection struct {
	Session *core.Session
	Root    *graph.Resource
	Metrics *MetricsServer

	closers []func(context.Context) error
}

// Close stops the metrics listener and closes the session.
func (c *Connection) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for idx := len(c.closers) - 1; idx >= 0; idx-- {
		if err := c.closers[idx](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Connect loads the configuration, applies the global flag overrides and
// connects a session to the API root.
func Connect(command *cobra.Command, deps CommandDependencies, flags *GlobalFlags) (*Connection, error) {
	newSession, err := RequireSessionFactory(deps)
	if err != nil {
		return nil, err
	}

	configPath := ""
	if flags != nil {
		configPath = flags.Config
	}
	cfg, err := deps.loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		if root := strings.TrimSpace(flags.Root); root != "" {
			cfg.API.Root = root
		}
		if listen := strings.TrimSpace(flags.MetricsListen); listen != "" {
			cfg.Telemetry.MetricsListen = listen
		}
	}

	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := debugctx.FromContext(ctx)
	registry := prometheus.NewRegistry()

	session, err := newSession(ctx, cfg, core.WithLogger(logger), core.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	connection := &Connection{Session: session}
	connection.closers = append(connection.closers, session.Close)

	if listen := session.Config.Telemetry.MetricsListen; listen != "" {
		metrics, err := ServeMetrics(listen, registry, logger.WithName("metrics"))
		if err != nil {
			_ = connection.Close(ctx)
			return nil, err
		}
		connection.Metrics = metrics
		connection.closers = append(connection.closers, metrics.Shutdown)
	}

	debugctx.Printf(ctx, "connecting root=%q", session.Config.API.Root)
	root, err := session.Connect(ctx)
	if err != nil {
		_ = connection.Close(ctx)
		return nil, err
	}
	connection.Root = root
	return connection, nil
}
