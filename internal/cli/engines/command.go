package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	configdomain "github.com/crmarques/prismafmt/config"
	enginesdomain "github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/faults"
	"github.com/crmarques/prismafmt/internal/cli/common"
	"github.com/spf13/cobra"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "engines",
		Short: "Download and inspect prisma engine binaries",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newDownloadCommand(deps, globalFlags),
		newPathCommand(deps, globalFlags),
		newTargetsCommand(deps, globalFlags),
		newVerifyCommand(deps, globalFlags),
	)

	return command
}

type installedEngine struct {
	Engine string `json:"engine" yaml:"engine"`
	Target string `json:"target" yaml:"target"`
	Path   string `json:"path" yaml:"path"`
}

func newDownloadCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		engineNames []string
		targetNames []string
		dir         string
		all         bool
		failSilent  bool
	)

	command := &cobra.Command{
		Use:   "download",
		Short: "Download engines for one or more platforms into a directory",
		Example: "  prisma-fmt engines download\n" +
			"  prisma-fmt engines download --all --target native --target linux-musl\n" +
			"  prisma-fmt engines download --engine query-engine --dir ./engines",
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			if all && len(engineNames) > 0 {
				return common.ValidationError("flags --all and --engine cannot be used together", nil)
			}

			session, installer, err := openInstaller(command, deps, globalFlags)
			if err != nil {
				return err
			}
			defer session.Close()

			selected, err := selectEngines(engineNames, all)
			if err != nil {
				return err
			}
			installDir := strings.TrimSpace(dir)
			if installDir == "" {
				installDir = binDir(installer)
			}

			requested := make(map[enginesdomain.EngineType]string, len(selected))
			for _, engine := range selected {
				requested[engine] = installDir
			}

			result, err := installer.Download(session.Context(), enginesdomain.Request{
				Engines:    requested,
				Targets:    selectTargets(targetNames, session.Config.Engines),
				Version:    session.Config.Engines.Version,
				FailSilent: failSilent || session.Config.Engines.FailSilent,
				LockDir:    installDir,
			})
			if err != nil {
				return err
			}

			return common.WriteOutput(command, globalFlags.Output, flattenResult(result), renderInstalled)
		},
	}

	command.Flags().StringSliceVar(&engineNames, "engine", nil, "engine to download (repeatable, default prisma-fmt)")
	command.Flags().StringSliceVar(&targetNames, "target", nil, "binary target (repeatable, default from config or native)")
	command.Flags().StringVar(&dir, "dir", "", "installation directory (default <cache-dir>/bin)")
	command.Flags().BoolVar(&all, "all", false, "download every engine used by the prisma CLI")
	command.Flags().BoolVar(&failSilent, "fail-silent", false, "log download failures instead of failing")
	common.RegisterFlagValueCompletions(command, "engine", engineNameValues())
	common.RegisterFlagValueCompletions(command, "target", targetFlagValues())

	return command
}

func newPathCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		engineName string
		targetName string
	)

	command := &cobra.Command{
		Use:   "path",
		Short: "Print where an engine is installed for a target",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			session, installer, err := openInstaller(command, deps, globalFlags)
			if err != nil {
				return err
			}
			defer session.Close()

			path, err := resolveEnginePath(session.Context(), deps, installer, engineName, targetName)
			if err != nil {
				return err
			}
			return common.WriteText(command, globalFlags.Output, path)
		},
	}

	command.Flags().StringVar(&engineName, "engine", string(enginesdomain.PrismaFmt), "engine name")
	command.Flags().StringVar(&targetName, "target", string(enginesdomain.TargetNative), "binary target")
	common.RegisterFlagValueCompletions(command, "engine", engineNameValues())
	common.RegisterFlagValueCompletions(command, "target", targetFlagValues())

	return command
}

type targetList struct {
	Native  string   `json:"native,omitempty" yaml:"native,omitempty"`
	Targets []string `json:"targets" yaml:"targets"`
}

func newTargetsCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List published binary targets and mark the host target",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			resolver, err := common.RequireTargets(deps)
			if err != nil {
				return err
			}

			list := targetList{Targets: knownTargetValues()}
			native, err := resolver.Detect(commandContext(command))
			if err == nil {
				list.Native = string(native)
			}

			return common.WriteOutput(command, globalFlags.Output, list, func(w io.Writer, value targetList) error {
				for _, target := range value.Targets {
					marker := " "
					if target == value.Native {
						marker = "*"
					}
					if _, err := fmt.Fprintf(w, "%s %s\n", marker, target); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

type verifyReport struct {
	Path    string `json:"path" yaml:"path"`
	Version string `json:"version" yaml:"version"`
	OK      bool   `json:"ok" yaml:"ok"`
}

func newVerifyCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var engineName string

	command := &cobra.Command{
		Use:   "verify [path]",
		Short: "Check that an installed engine reports the configured version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			session, installer, err := openInstaller(command, deps, globalFlags)
			if err != nil {
				return err
			}
			defer session.Close()

			path := ""
			if len(args) > 0 {
				path = strings.TrimSpace(args[0])
			}
			if path == "" {
				path, err = resolveEnginePath(session.Context(), deps, installer, engineName, string(enginesdomain.TargetNative))
				if err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("engine %s not found", path), err)
				}
				return faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to inspect engine %s", path), err)
			}

			version := session.Config.Engines.Version
			ok, err := installer.Verify(session.Context(), path, version)
			if err != nil {
				return err
			}
			report := verifyReport{Path: path, Version: version, OK: ok}
			if err := common.WriteOutput(command, globalFlags.Output, report, func(w io.Writer, value verifyReport) error {
				state := "matches"
				if !value.OK {
					state = "does not match"
				}
				_, err := fmt.Fprintf(w, "%s %s version %s\n", value.Path, state, value.Version)
				return err
			}); err != nil {
				return err
			}
			if !ok {
				return faults.NewTypedError(
					faults.ConflictError,
					fmt.Sprintf("engine %s does not report version %s", path, version),
					nil,
				)
			}
			return nil
		},
	}

	command.Flags().StringVar(&engineName, "engine", string(enginesdomain.PrismaFmt), "engine name used to locate the default path")
	common.RegisterFlagValueCompletions(command, "engine", engineNameValues())

	return command
}

func openInstaller(
	command *cobra.Command,
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
) (*common.Session, enginesdomain.Installer, error) {
	factory, err := common.RequireInstallers(deps)
	if err != nil {
		return nil, nil, err
	}
	session, err := common.StartSession(command, deps, globalFlags)
	if err != nil {
		return nil, nil, err
	}
	installer, err := factory(session.Config.Engines)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return session, installer, nil
}

func resolveEnginePath(
	ctx context.Context,
	deps common.CommandDependencies,
	installer enginesdomain.Installer,
	engineName string,
	targetName string,
) (string, error) {
	engine, err := enginesdomain.ParseEngineType(engineName)
	if err != nil {
		return "", err
	}
	target := enginesdomain.Target(strings.TrimSpace(targetName))
	if err := enginesdomain.ValidateTarget(target); err != nil {
		return "", err
	}

	if custom := strings.TrimSpace(os.Getenv(engine.CustomBinaryEnvVar())); custom != "" {
		return custom, nil
	}

	resolver, err := common.RequireTargets(deps)
	if err != nil {
		return "", err
	}
	resolved, err := resolver.Resolve(ctx, target)
	if err != nil {
		return "", err
	}
	return filepath.Join(binDir(installer), enginesdomain.BinaryName(engine, resolved)), nil
}

func selectEngines(names []string, all bool) ([]enginesdomain.EngineType, error) {
	if all {
		return enginesdomain.CLIEngines(), nil
	}
	if len(names) == 0 {
		return []enginesdomain.EngineType{enginesdomain.PrismaFmt}, nil
	}

	selected := make([]enginesdomain.EngineType, 0, len(names))
	for _, name := range names {
		engine, err := enginesdomain.ParseEngineType(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, engine)
	}
	return selected, nil
}

// selectTargets prefers the flags, then the configured binary targets.
func selectTargets(names []string, cfg configdomain.Engines) []enginesdomain.Target {
	if targets := enginesdomain.ParseTargets(names); len(targets) > 0 {
		return targets
	}
	if targets := enginesdomain.ParseTargets(cfg.BinaryTargets); len(targets) > 0 {
		return targets
	}
	return []enginesdomain.Target{enginesdomain.TargetNative}
}

func flattenResult(result enginesdomain.Result) []installedEngine {
	items := make([]installedEngine, 0, len(result))
	for engine, targets := range result {
		for target, path := range targets {
			items = append(items, installedEngine{Engine: string(engine), Target: string(target), Path: path})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Engine != items[j].Engine {
			return items[i].Engine < items[j].Engine
		}
		return items[i].Target < items[j].Target
	})
	return items
}

func renderInstalled(w io.Writer, items []installedEngine) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no engines downloaded")
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(w, "%s %s %s\n", item.Engine, item.Target, item.Path); err != nil {
			return err
		}
	}
	return nil
}

func binDir(installer enginesdomain.Installer) string {
	return filepath.Join(installer.CacheDir(), "bin")
}

func engineNameValues() []string {
	names := make([]string, 0)
	for _, engine := range enginesdomain.EngineTypes() {
		names = append(names, string(engine))
	}
	return names
}

func knownTargetValues() []string {
	names := make([]string, 0)
	for _, target := range enginesdomain.KnownTargets() {
		names = append(names, string(target))
	}
	return names
}

func targetFlagValues() []string {
	return append([]string{string(enginesdomain.TargetNative)}, knownTargetValues()...)
}

func commandContext(command *cobra.Command) context.Context {
	if ctx := command.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
