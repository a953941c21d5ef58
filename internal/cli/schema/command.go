package schema

import (
	"fmt"
	"io"

	"github.com/crmarques/prismafmt/bridge"
	schemaapp "github.com/crmarques/prismafmt/internal/app/schema"
	"github.com/crmarques/prismafmt/internal/cli/common"
	"github.com/spf13/cobra"
)

// NewCommands returns one command per bridge operation.
func NewCommands(deps common.CommandDependencies, globalFlags *common.GlobalFlags) []*cobra.Command {
	return []*cobra.Command{
		newFormatCommand(deps, globalFlags),
		newLintCommand(deps, globalFlags),
		newInputCommand(deps, globalFlags, bridge.OperationNativeTypes, "List the native types of the schema datasource provider"),
		newInputCommand(deps, globalFlags, bridge.OperationReferentialActions, "List the referential actions supported by the schema datasource"),
		newPreviewFeaturesCommand(deps, globalFlags),
		newEngineVersionCommand(deps, globalFlags),
	}
}

func newFormatCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var write bool

	command := &cobra.Command{
		Use:   "format [file|-]",
		Short: "Format a Prisma schema",
		Example: "  prisma-fmt format schema.prisma\n" +
			"  prisma-fmt format --write schema.prisma\n" +
			"  cat schema.prisma | prisma-fmt format",
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			input, err := common.ReadSchemaInput(command, args)
			if err != nil {
				return err
			}
			result, err := run(command, deps, globalFlags, schemaapp.Request{
				Operation:  bridge.OperationFormat,
				Input:      input.Text,
				SourcePath: input.Path,
				Write:      write,
			})
			if err != nil {
				return err
			}
			if write {
				return writeFormatReport(command, globalFlags.Output, input.Path, result)
			}
			return common.WriteEngineOutput(command, globalFlags.Output, bridge.OperationFormat, result.Output)
		},
	}
	command.Flags().BoolVarP(&write, "write", "w", false, "rewrite the schema file in place")

	return command
}

func newLintCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var query string

	command := &cobra.Command{
		Use:   "lint [file|-]",
		Short: "Lint a Prisma schema and print diagnostics as JSON",
		Example: "  prisma-fmt lint schema.prisma\n" +
			"  prisma-fmt lint schema.prisma --query 'map(select(.is_warning | not)) | length'",
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			input, err := common.ReadSchemaInput(command, args)
			if err != nil {
				return err
			}
			result, err := run(command, deps, globalFlags, schemaapp.Request{
				Operation:  bridge.OperationLint,
				Input:      input.Text,
				SourcePath: input.Path,
				Query:      query,
			})
			if err != nil {
				return err
			}
			return common.WriteEngineOutput(command, globalFlags.Output, bridge.OperationLint, result.Output)
		},
	}
	command.Flags().StringVarP(&query, "query", "q", "", "jq expression applied to the diagnostics")

	return command
}

func newInputCommand(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	operation bridge.Operation,
	short string,
) *cobra.Command {
	return &cobra.Command{
		Use:   operation.CommandName() + " [file|-]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			input, err := common.ReadSchemaInput(command, args)
			if err != nil {
				return err
			}
			result, err := run(command, deps, globalFlags, schemaapp.Request{
				Operation:  operation,
				Input:      input.Text,
				SourcePath: input.Path,
			})
			if err != nil {
				return err
			}
			return common.WriteEngineOutput(command, globalFlags.Output, operation, result.Output)
		},
	}
}

func newPreviewFeaturesCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preview-features",
		Short: "List the preview features known to the engine",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			result, err := run(command, deps, globalFlags, schemaapp.Request{Operation: bridge.OperationPreviewFeatures})
			if err != nil {
				return err
			}
			return common.WriteEngineOutput(command, globalFlags.Output, bridge.OperationPreviewFeatures, result.Output)
		},
	}
}

// The input is optional and forwarded untouched.
func newEngineVersionCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "engine-version [file|-]",
		Short: "Print the version reported by the engine",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			input, err := common.ReadOptionalSchemaInput(command, args)
			if err != nil {
				return err
			}
			result, err := run(command, deps, globalFlags, schemaapp.Request{
				Operation: bridge.OperationVersion,
				Input:     input.Text,
			})
			if err != nil {
				return err
			}
			return common.WriteEngineOutput(command, globalFlags.Output, bridge.OperationVersion, result.Output)
		},
	}
}

func run(
	command *cobra.Command,
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	request schemaapp.Request,
) (schemaapp.Result, error) {
	session, err := common.StartSession(command, deps, globalFlags)
	if err != nil {
		return schemaapp.Result{}, err
	}
	defer session.Close()

	surface, err := session.Surface()
	if err != nil {
		return schemaapp.Result{}, err
	}
	return schemaapp.Execute(session.Context(), schemaapp.Dependencies{Surface: surface}, request)
}

type formatReport struct {
	Path    string `json:"path" yaml:"path"`
	Changed bool   `json:"changed" yaml:"changed"`
}

func writeFormatReport(command *cobra.Command, format string, path string, result schemaapp.Result) error {
	report := formatReport{Path: path, Changed: result.Written}
	return common.WriteOutput(command, format, report, func(w io.Writer, value formatReport) error {
		if value.Changed {
			_, err := fmt.Fprintf(w, "formatted %s\n", value.Path)
			return err
		}
		_, err := fmt.Fprintf(w, "%s is already formatted\n", value.Path)
		return err
	})
}
