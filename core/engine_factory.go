package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/faults"
	"github.com/crmarques/prismafmt/internal/instrument"
	"github.com/crmarques/prismafmt/internal/providers/engine/binary"
	"github.com/crmarques/prismafmt/internal/providers/engine/wasm"
	"github.com/crmarques/prismafmt/internal/providers/engines/fetch"
	"github.com/crmarques/prismafmt/internal/providers/engines/platform"
	"github.com/crmarques/prismafmt/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// NewSurface builds the configured engine, instruments it and exposes it as
// the bridge surface. Callers own the surface and must Close it. A nil
// providers records metrics nowhere and traces through the global providers.
func NewSurface(ctx context.Context, cfg config.Config, providers *telemetry.Providers) (*bridge.Surface, error) {
	engine, err := NewEngine(ctx, cfg, providers)
	if err != nil {
		return nil, err
	}
	surface, err := bridge.NewSurface(engine)
	if err != nil {
		closeEngine(ctx, engine)
		return nil, err
	}
	return surface, nil
}

func NewEngine(ctx context.Context, cfg config.Config, providers *telemetry.Providers) (bridge.Engine, error) {
	raw, err := newRawEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	options := instrument.Options{}
	var registerer prometheus.Registerer
	if providers != nil {
		if providers.Registry != nil {
			registerer = providers.Registry
		}
		options.TracerProvider = providers.TracerProvider
		options.MeterProvider = providers.MeterProvider
	}
	metrics, err := instrument.NewMetrics(registerer)
	if err != nil {
		closeEngine(ctx, raw)
		return nil, err
	}
	options.Metrics = metrics
	wrapped, err := instrument.Wrap(raw, options)
	if err != nil {
		closeEngine(ctx, raw)
		return nil, err
	}
	return wrapped, nil
}

func newRawEngine(ctx context.Context, cfg config.Config) (bridge.Engine, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Engine.Kind))
	debugctx.Printf(ctx, "building %s engine", kind)

	switch kind {
	case config.EngineKindWASM:
		engine, err := wasm.New(ctx, wasm.OptionsFromConfig(cfg.Engine.WASM))
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "", config.EngineKindBinary:
		options := binary.OptionsFromConfig(cfg.Engine.Binary)
		if strings.TrimSpace(options.Path) == "" {
			path, err := installPrismaFmt(ctx, cfg.Engines)
			if err != nil {
				return nil, err
			}
			options.Path = path
		}
		engine, err := binary.New(options)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unsupported engine kind %q", cfg.Engine.Kind),
			nil,
		)
	}
}

// installPrismaFmt resolves the prisma-fmt executable for the host from the
// engines cache, downloading it on first use.
func installPrismaFmt(ctx context.Context, cfg config.Engines) (string, error) {
	fetcher, err := fetch.NewFetcher(fetch.OptionsFromConfig(cfg, platform.NewDetector()))
	if err != nil {
		return "", err
	}

	result, err := fetcher.Download(ctx, engines.Request{
		Engines: map[engines.EngineType]string{engines.PrismaFmt: filepath.Join(fetcher.CacheDir(), "bin")},
		Targets: []engines.Target{engines.TargetNative},
		Version: cfg.Version,
	})
	if err != nil {
		return "", err
	}
	for _, path := range result[engines.PrismaFmt] {
		return path, nil
	}
	return "", faults.NewTypedError(faults.NotFoundError, "prisma-fmt binary could not be installed", nil)
}

func closeEngine(ctx context.Context, engine bridge.Engine) {
	closer, ok := engine.(bridge.Closer)
	if !ok {
		return
	}
	if err := closer.Close(ctx); err != nil {
		debugctx.Printf(ctx, "engine close failed: %v", err)
	}
}
