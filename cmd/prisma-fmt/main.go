package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/core"
	"github.com/crmarques/prismafmt/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, newDependencies(os.Getenv(config.ConfigFileEnvVar)), os.Args[1:])
	stop()
	if err != nil {
		os.Exit(exitCodeForError(err))
	}
}

// newDependencies wires the providers; nothing is started until a command
// asks for it.
func newDependencies(configPath string) cli.Dependencies {
	return cli.Dependencies{
		Configs:    core.NewConfigService(core.BootstrapConfig{ConfigPath: configPath}),
		Surfaces:   core.NewSurface,
		Installers: core.NewEngineInstaller,
		Targets:    core.NewTargetResolver(),
		Servers:    core.NewHTTPServer,
	}
}

func exitCodeForError(err error) int {
	return cli.ExitCodeForError(err)
}
