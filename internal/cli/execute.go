package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/engines"
	"github.com/crmarques/prismafmt/faults"
	"github.com/crmarques/prismafmt/internal/cli/commandmeta"
	"github.com/crmarques/prismafmt/internal/cli/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Dependencies struct {
	Configs    config.Service
	Surfaces   common.SurfaceFactory
	Installers common.InstallerFactory
	Targets    engines.TargetResolver
	Servers    common.ServerFactory
}

func (d Dependencies) commandDependencies() common.CommandDependencies {
	return common.CommandDependencies{
		Configs:    d.Configs,
		Surfaces:   d.Surfaces,
		Installers: d.Installers,
		Targets:    d.Targets,
		Servers:    d.Servers,
	}
}

func Execute(ctx context.Context, deps Dependencies, args []string) error {
	root := NewRootCommand(deps)
	root.SetArgs(args)
	return executeRoot(ctx, root)
}

func executeRoot(ctx context.Context, root *cobra.Command) error {
	command, err := root.ExecuteContextC(ctx)
	emitStatus := shouldEmitExecutionStatus(root, command)
	noColor := flagEnabled(root.PersistentFlags(), "no-color")

	if err != nil {
		if emitStatus {
			writeExecutionErrorStatus(root.ErrOrStderr(), err, noColor)
		} else {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), strings.TrimSpace(err.Error()))
		}
		return err
	}
	if emitStatus {
		writeExecutionOKStatus(root.ErrOrStderr(), noColor)
	}
	return nil
}

func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		return 1
	}

	switch typedErr.Category {
	case faults.ValidationError:
		return 2
	case faults.NotFoundError:
		return 3
	case faults.AuthError:
		return 4
	case faults.ConflictError:
		return 5
	case faults.TransportError:
		return 6
	case faults.UnsupportedError:
		return 7
	case faults.EngineError:
		return 8
	default:
		return 1
	}
}

func writeExecutionOKStatus(w io.Writer, noColor bool) {
	_, _ = fmt.Fprintf(w, "%s command executed successfully.\n", formatStatusLabel(w, "OK", noColor))
}

func writeExecutionErrorStatus(w io.Writer, err error, noColor bool) {
	description := "command execution failed"
	if err != nil {
		description = fmt.Sprintf("%s: %s", description, strings.TrimSpace(err.Error()))
	}
	_, _ = fmt.Fprintf(w, "%s %s.\n", formatStatusLabel(w, "ERROR", noColor), description)
}

func formatStatusLabel(w io.Writer, status string, noColor bool) string {
	label := fmt.Sprintf("[%s]", strings.TrimSpace(status))
	if !common.SupportsColor(w, noColor) {
		return label
	}

	switch strings.TrimSpace(status) {
	case "OK":
		return "\x1b[1;32m" + label + "\x1b[0m"
	case "ERROR":
		return "\x1b[1;31m" + label + "\x1b[0m"
	default:
		return label
	}
}

// Flags are parsed by the time ExecuteC returns, except when parsing itself
// failed; in that case the status line is skipped.
func shouldEmitExecutionStatus(root *cobra.Command, command *cobra.Command) bool {
	if command == nil || command == root {
		return false
	}
	if flagEnabled(root.PersistentFlags(), "no-status") {
		return false
	}
	if flagEnabled(command.Flags(), "help") {
		return false
	}
	return commandmeta.EmitsExecutionStatusPath(strings.TrimSpace(command.CommandPath()))
}

func flagEnabled(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	value, err := flags.GetBool(name)
	return err == nil && value
}
