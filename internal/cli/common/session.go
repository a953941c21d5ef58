package common

import (
	"context"
	"time"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/internal/logging"
	"github.com/crmarques/prismafmt/internal/telemetry"
	"github.com/spf13/cobra"
)

const sessionCloseTimeout = 5 * time.Second

// Session is the loaded configuration of one command run plus the logging
// and telemetry built from it. The engine is only started on first use.
type Session struct {
	Config    config.Config
	Telemetry *telemetry.Providers

	ctx     context.Context
	deps    CommandDependencies
	surface *bridge.Surface
	closers []func(context.Context) error
}

// StartSession loads the configuration selected by the global flags and
// installs the configured logger into the command context.
func StartSession(command *cobra.Command, deps CommandDependencies, flags *GlobalFlags) (*Session, error) {
	configs, err := RequireConfigs(deps)
	if err != nil {
		return nil, err
	}
	selection, err := Selection(flags)
	if err != nil {
		return nil, err
	}

	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := configs.Load(ctx, selection)
	if err != nil {
		return nil, err
	}

	debug := flags != nil && flags.Debug
	logger, syncLogger, err := logging.New(cfg.Logging, debug, command.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	ctx = debugctx.WithLogger(ctx, logger)

	providers, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		syncLogger()
		return nil, err
	}

	session := &Session{
		Config:    cfg,
		Telemetry: providers,
		ctx:       ctx,
		deps:      deps,
	}
	session.closers = append(session.closers,
		func(context.Context) error {
			syncLogger()
			return nil
		},
		providers.Shutdown,
	)
	command.SetContext(ctx)

	debugctx.Printf(ctx, "session config engine=%q cache=%q telemetry=%t", cfg.Engine.Kind, cfg.Engines.CacheDir, cfg.Telemetry.Enabled())
	return session, nil
}

func (s *Session) Context() context.Context {
	return s.ctx
}

// Surface starts the configured engine once and returns it on later calls.
func (s *Session) Surface() (*bridge.Surface, error) {
	if s.surface != nil {
		return s.surface, nil
	}

	factory, err := RequireSurfaces(s.deps)
	if err != nil {
		return nil, err
	}
	surface, err := factory(s.ctx, s.Config, s.Telemetry)
	if err != nil {
		return nil, err
	}

	s.surface = surface
	s.closers = append(s.closers, surface.Close)
	return surface, nil
}

// Close releases resources in reverse order of acquisition. Errors are logged
// because the command result has already been decided.
func (s *Session) Close() {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), sessionCloseTimeout)
	defer cancel()

	for idx := len(s.closers) - 1; idx >= 0; idx-- {
		if err := s.closers[idx](ctx); err != nil {
			debugctx.Logger(s.ctx).Error(err, "session cleanup failed")
		}
	}
	s.closers = nil
}
