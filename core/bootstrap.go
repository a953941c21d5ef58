package core

import (
	"context"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/internal/providers/config/file"
	"github.com/crmarques/prismafmt/internal/providers/engines/fetch"
	"github.com/crmarques/prismafmt/internal/providers/engines/platform"
	httpserver "github.com/crmarques/prismafmt/internal/providers/server/http"
	"github.com/crmarques/prismafmt/internal/telemetry"
	"github.com/crmarques/prismafmt/server"
	"github.com/prometheus/client_golang/prometheus"
)

func NewConfigService(opts BootstrapConfig) config.Service {
	return file.NewFileConfigService(opts.ConfigPath)
}

// NewPrismaFmtContext loads the effective configuration for a selection.
func NewPrismaFmtContext(ctx context.Context, opts BootstrapConfig, selection config.Selection) (PrismaFmtContext, error) {
	configs := NewConfigService(opts)
	cfg, err := configs.Load(ctx, selection)
	if err != nil {
		return PrismaFmtContext{}, err
	}
	return PrismaFmtContext{Config: cfg, Configs: configs}, nil
}

func NewTargetResolver() engines.TargetResolver {
	return platform.NewDetector()
}

func NewEngineInstaller(cfg config.Engines) (engines.Installer, error) {
	fetcher, err := fetch.NewFetcher(fetch.OptionsFromConfig(cfg, platform.NewDetector()))
	if err != nil {
		return nil, err
	}
	return fetcher, nil
}

// NewHTTPServer serves surface; /metrics exposes the registry of providers,
// or the default registry when providers is nil.
func NewHTTPServer(surface *bridge.Surface, cfg config.Server, providers *telemetry.Providers) (server.HTTPServer, error) {
	var gatherer prometheus.Gatherer
	if providers != nil && providers.Registry != nil {
		gatherer = providers.Registry
	}
	httpServer, err := httpserver.NewServer(surface, httpserver.OptionsFromConfig(cfg, gatherer))
	if err != nil {
		return nil, err
	}
	return httpServer, nil
}
