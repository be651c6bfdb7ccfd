package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nyayatech/casefind/internal/mcp"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search engine over MCP",
		Long: `Serve exposes search_cases and get_case as MCP tools. The stdio
transport speaks JSON-RPC on stdin/stdout, which is why all logging goes
to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer comps.Close()

			srv, err := mcp.NewServer(comps.orch, comps.meta)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")

	return cmd
}
