package common

import (
	"context"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/internal/telemetry"
	"github.com/crmarques/prismafmt/server"
)

// SurfaceFactory builds the configured engine behind a bridge surface.
type SurfaceFactory func(ctx context.Context, cfg config.Config, providers *telemetry.Providers) (*bridge.Surface, error)

type InstallerFactory func(cfg config.Engines) (engines.Installer, error)

type ServerFactory func(surface *bridge.Surface, cfg config.Server, providers *telemetry.Providers) (server.HTTPServer, error)

type CommandDependencies struct {
	Configs    config.Service
	Surfaces   SurfaceFactory
	Installers InstallerFactory
	Targets    engines.TargetResolver
	Servers    ServerFactory
}

func RequireConfigs(deps CommandDependencies) (config.Service, error) {
	if deps.Configs == nil {
		return nil, ValidationError("config service is not configured", nil)
	}
	return deps.Configs, nil
}

func RequireSurfaces(deps CommandDependencies) (SurfaceFactory, error) {
	if deps.Surfaces == nil {
		return nil, ValidationError("engine factory is not configured", nil)
	}
	return deps.Surfaces, nil
}

func RequireInstallers(deps CommandDependencies) (InstallerFactory, error) {
	if deps.Installers == nil {
		return nil, ValidationError("engine installer is not configured", nil)
	}
	return deps.Installers, nil
}

func RequireTargets(deps CommandDependencies) (engines.TargetResolver, error) {
	if deps.Targets == nil {
		return nil, ValidationError("platform detector is not configured", nil)
	}
	return deps.Targets, nil
}

func RequireServers(deps CommandDependencies) (ServerFactory, error) {
	if deps.Servers == nil {
		return nil, ValidationError("http server factory is not configured", nil)
	}
	return deps.Servers, nil
}
