package cli

import (
	"github.com/spf13/cobra"

	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded agent runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ticketID, _ := cmd.Flags().GetString("ticket")
		_, err := wire.DispatchAdapter().ListRuns(cmd.Context(), ticketID)
		return err
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show run details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.DispatchAdapter().ShowRun(cmd.Context(), args[0])
		return err
	},
}

func init() {
	runsListCmd.Flags().String("ticket", "", "Only runs of this grandchild ticket")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	return runsCmd
}
