package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	configdomain "github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/faults"
	"github.com/crmarques/prismafmt/internal/cli/common"
	"github.com/crmarques/prismafmt/yamlutil"
	"github.com/spf13/cobra"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return newCommandWithPrompter(deps, globalFlags, terminalPrompter{})
}

func newCommandWithPrompter(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	prompter configPrompter,
) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the configuration file",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newShowCommand(deps, globalFlags),
		newInitCommand(deps, globalFlags, prompter),
	)

	return command
}

func newShowCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and overrides",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			configs, err := common.RequireConfigs(deps)
			if err != nil {
				return err
			}
			selection, err := common.Selection(globalFlags)
			if err != nil {
				return err
			}

			cfg, err := configs.Load(command.Context(), selection)
			if err != nil {
				return err
			}
			return common.WriteOutput(command, globalFlags.Output, cfg, renderYAML)
		},
	}
}

func newInitCommand(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	prompter configPrompter,
) *cobra.Command {
	var (
		force     bool
		kind      string
		wasmPath  string
		noPrompts bool
	)

	command := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Example: "  prisma-fmt config init\n" +
			"  prisma-fmt config init --kind wasm --wasm-path ./prisma_schema_build_bg.wasm\n" +
			"  prisma-fmt --config ./prisma-fmt.yaml config init --force",
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			configs, err := common.RequireConfigs(deps)
			if err != nil {
				return err
			}

			path, err := configs.ResolvePath(strings.TrimSpace(globalFlags.Config))
			if err != nil {
				return err
			}
			interactive := !noPrompts && prompter.IsInteractive(command)
			if _, statErr := os.Stat(path); statErr == nil {
				if !force {
					overwrite := false
					if interactive {
						overwrite, err = prompter.Confirm(command, fmt.Sprintf("Overwrite %s?", path), false)
						if err != nil {
							return err
						}
					}
					if !overwrite {
						return faults.NewTypedError(
							faults.ConflictError,
							fmt.Sprintf("config file %s already exists; use --force to overwrite", path),
							nil,
						)
					}
				}
			} else if !errors.Is(statErr, os.ErrNotExist) {
				return faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to inspect %s", path), statErr)
			}

			cfg := configdomain.Config{Engine: configdomain.Engine{
				Kind: strings.TrimSpace(kind),
				WASM: configdomain.WASMEngine{Path: strings.TrimSpace(wasmPath)},
			}}
			if interactive {
				if err := promptConfig(command, prompter, &cfg); err != nil {
					return err
				}
			}
			if cfg.Engine.Kind == "" {
				cfg.Engine.Kind = configdomain.EngineKindBinary
			}

			if err := configs.Save(command.Context(), path, cfg); err != nil {
				return err
			}
			return common.WriteText(command, globalFlags.Output, "wrote "+path)
		},
	}

	command.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	command.Flags().StringVar(&kind, "kind", "", "engine kind to configure (wasm or binary)")
	command.Flags().StringVar(&wasmPath, "wasm-path", "", "path of the prisma-fmt wasm module")
	command.Flags().BoolVar(&noPrompts, "no-prompt", false, "never prompt, even on a terminal")
	common.RegisterFlagValueCompletions(command, "kind", []string{configdomain.EngineKindBinary, configdomain.EngineKindWASM})

	return command
}

// promptConfig only asks for values the flags left empty.
func promptConfig(command *cobra.Command, prompter configPrompter, cfg *configdomain.Config) error {
	if cfg.Engine.Kind == "" {
		kind, err := prompter.Select(command, "Select engine kind", []string{
			configdomain.EngineKindBinary,
			configdomain.EngineKindWASM,
		})
		if err != nil {
			return err
		}
		cfg.Engine.Kind = kind
	}

	switch cfg.Engine.Kind {
	case configdomain.EngineKindWASM:
		if cfg.Engine.WASM.Path == "" {
			value, err := prompter.Input(command, "Path of the prisma-fmt wasm module", "")
			if err != nil {
				return err
			}
			cfg.Engine.WASM.Path = strings.TrimSpace(value)
		}
	case configdomain.EngineKindBinary:
		value, err := prompter.Input(command, "Path of the prisma-fmt binary (empty downloads it)", "")
		if err != nil {
			return err
		}
		cfg.Engine.Binary.Path = strings.TrimSpace(value)
	}

	listen, err := prompter.Input(command, "HTTP listen address for serve", configdomain.DefaultListen)
	if err != nil {
		return err
	}
	if value := strings.TrimSpace(listen); value != "" && value != configdomain.DefaultListen {
		cfg.Server.Listen = value
	}
	return nil
}

func renderYAML(w io.Writer, cfg configdomain.Config) error {
	encoded, err := yamlutil.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}
