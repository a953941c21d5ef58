package common

import (
	"strings"

	"github.com/crmarques/prismafmt/config"
	"github.com/spf13/cobra"
)

type GlobalFlags struct {
	Config   string
	Engine   string
	Set      []string
	Debug    bool
	NoStatus bool
	NoColor  bool
	Output   string
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	command.PersistentFlags().StringVar(&flags.Config, "config", "", "config file path (default $PRISMA_FMT_CONFIG or "+config.DefaultConfigPath+")")
	command.PersistentFlags().StringVarP(&flags.Engine, "engine", "e", "", "engine kind: wasm|binary")
	command.PersistentFlags().StringArrayVar(&flags.Set, "set", nil, "config override key=value (repeatable)")
	command.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug output")
	command.PersistentFlags().BoolVarP(&flags.NoStatus, "no-status", "n", false, "hide status output")
	command.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "disable color output")
	command.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputAuto, "output format: auto|text|json|yaml")
	RegisterFlagValueCompletions(command, "output", outputCompletionValues)
	RegisterFlagValueCompletions(command, "engine", engineCompletionValues)
}

// Selection maps the global flags onto a configuration selection. --engine
// wins over a --set for the same key.
func Selection(flags *GlobalFlags) (config.Selection, error) {
	if flags == nil {
		return config.Selection{}, nil
	}

	overrides, err := parseOverrides(flags.Set)
	if err != nil {
		return config.Selection{}, err
	}
	if engine := strings.TrimSpace(flags.Engine); engine != "" {
		if overrides == nil {
			overrides = map[string]string{}
		}
		overrides["engine.kind"] = engine
	}

	return config.Selection{Path: strings.TrimSpace(flags.Config), Overrides: overrides}, nil
}

func parseOverrides(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	parsed := make(map[string]string, len(values))
	for _, value := range values {
		parts := strings.SplitN(value, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, ValidationError("invalid override: expected key=value", nil)
		}
		parsed[strings.TrimSpace(parts[0])] = parts[1]
	}

	return parsed, nil
}
