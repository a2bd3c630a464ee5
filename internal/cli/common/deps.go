package common

import (
	"context"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/core"
)

// SessionFactory builds a session from a resolved configuration.
type SessionFactory func(ctx context.Context, cfg config.Session, opts ...core.SessionOption) (*core.Session, error)

type CommandDependencies struct {
	NewSession SessionFactory
	// LoadConfig resolves the configuration for a --config value; defaults
	// to config.LoadWithEnv.
	LoadConfig func(path string) (config.Session, error)
}

func RequireSessionFactory(deps CommandDependencies) (SessionFactory, error) {
	if deps.NewSession == nil {
		return nil, ValidationError("session factory is not configured", nil)
	}
	return deps.NewSession, nil
}

func (d CommandDependencies) loadConfig(path string) (config.Session, error) {
	if d.LoadConfig != nil {
		return d.LoadConfig(path)
	}
	return config.LoadWithEnv(path)
}
