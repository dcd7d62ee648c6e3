package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kawanishi0117/agent-company-sub008/internal/core/qa"
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Parse saved test and lint output",
}

var qaParseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse vitest or eslint output into JSON",
	Long: `Parse saved console output of a QA tool and print the structured result.

Examples:
  npx vitest run --coverage | agentco qa parse --kind vitest -
  agentco qa parse --kind eslint lint.log`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipWire: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		raw, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		var result interface{}
		switch kind {
		case "vitest":
			result = qa.ParseVitestOutput(raw)
		case "eslint":
			result = qa.ParseEslintOutput(raw)
		default:
			return fmt.Errorf("unknown kind %q (expected vitest or eslint)", kind)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	qaParseCmd.Flags().String("kind", "vitest", "Output format: vitest or eslint")
	qaCmd.AddCommand(qaParseCmd)
}

// QACmd returns the qa command
func QACmd() *cobra.Command {
	return qaCmd
}
