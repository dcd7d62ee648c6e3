package cli

import (
	"github.com/spf13/cobra"

	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

// AgentCmd returns the agent command
func AgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect coding agent adapters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List adapters with availability and version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.AgentAdapter().List(cmd.Context())
			return err
		},
	})
	return cmd
}
