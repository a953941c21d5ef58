package serve

import (
	"strings"

	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/internal/cli/common"
	"github.com/spf13/cobra"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var listen string

	command := &cobra.Command{
		Use:   "serve",
		Short: "Expose the bridge operations over HTTP",
		Example: "  prisma-fmt serve\n" +
			"  prisma-fmt serve --listen 0.0.0.0:7420 --engine wasm",
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			factory, err := common.RequireServers(deps)
			if err != nil {
				return err
			}

			flags := *globalFlags
			if value := strings.TrimSpace(listen); value != "" {
				flags.Set = append(append([]string(nil), flags.Set...), "server.listen="+value)
			}

			session, err := common.StartSession(command, deps, &flags)
			if err != nil {
				return err
			}
			defer session.Close()

			surface, err := session.Surface()
			if err != nil {
				return err
			}
			srv, err := factory(surface, session.Config.Server, session.Telemetry)
			if err != nil {
				return err
			}

			debugctx.Logger(session.Context()).Info("serving bridge", "addr", srv.Addr(), "engine", session.Config.Engine.Kind)
			return srv.ListenAndServe(session.Context())
		},
	}

	command.Flags().StringVar(&listen, "listen", "", "listen address (default from server.listen)")

	return command
}
