package cli

import (
	"github.com/spf13/cobra"

	corejudgment "github.com/kawanishi0117/agent-company-sub008/internal/core/judgment"
	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

// JudgeCmd returns the judge command
func JudgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge [run-id]",
		Short: "Judge a run against the quality gate",
		Long: `Judge a recorded run from its test, lint and coverage results.

Exits 0 on PASS or WAIVER and 1 on FAIL. A waiver only converts a FAIL,
and only when it is approved and its deadline has not passed.

Examples:
  agentco judge 3f2a9c1e-...
  agentco judge 3f2a9c1e-... --waiver flaky-fixture`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waiverID, _ := cmd.Flags().GetString("waiver")

			judgment, err := wire.JudgmentAdapter().Judge(cmd.Context(), args[0], waiverID)
			if err != nil {
				return err
			}
			if code := corejudgment.ExitCode(judgment.Status); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().String("waiver", "", "Waiver id to apply if the run fails")
	return cmd
}
