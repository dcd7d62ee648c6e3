package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	cliadapter "github.com/kawanishi0117/agent-company-sub008/internal/adapters/cli"
	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

var waiverCmd = &cobra.Command{
	Use:   "waiver",
	Short: "Validate and scaffold waiver documents",
}

var waiverValidateCmd = &cobra.Command{
	Use:         "validate [file|-]",
	Short:       "Validate a waiver document",
	Long:        "Check a waiver document for required sections, deadline format and leftover template text. Exits 1 when invalid.",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipWire: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		result := cliadapter.NewWaiverAdapter(nil, cmd.OutOrStdout()).Validate(args[0], doc)
		if !result.Valid {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

var waiverNewCmd = &cobra.Command{
	Use:   "new [waiver-id]",
	Short: "Write a blank waiver template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		_, err := wire.WaiverAdapter().New(cmd.Context(), args[0], target)
		return err
	},
}

// readInput reads a file, or stdin when name is "-".
func readInput(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

func init() {
	waiverNewCmd.Flags().String("target", "", "Ticket or run the waiver applies to")

	waiverCmd.AddCommand(waiverValidateCmd)
	waiverCmd.AddCommand(waiverNewCmd)
}

// WaiverCmd returns the waiver command
func WaiverCmd() *cobra.Command {
	return waiverCmd
}
