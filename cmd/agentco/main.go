package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kawanishi0117/agent-company-sub008/internal/cli"
	"github.com/kawanishi0117/agent-company-sub008/internal/version"
	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "agentco",
		Short:   "agentco - ticket hierarchy, coding agent dispatch and QA judgment",
		Version: version.String(),
		Long: `agentco breaks instructions into parent, child and grandchild tickets,
hands grandchildren to coding agents (claude, codex, opencode), and judges
each run from its test, lint and coverage results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			wire.SetConfigFile(configFile)
			if !cli.NeedsServices(cmd.Annotations) {
				return nil
			}
			return wire.Init()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default .agentco/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides data_dir)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	settings := wire.Viper()
	_ = settings.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = settings.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.TicketCmd())
	rootCmd.AddCommand(cli.JudgeCmd())
	rootCmd.AddCommand(cli.RunsCmd())
	rootCmd.AddCommand(cli.WaiverCmd())
	rootCmd.AddCommand(cli.QACmd())
	rootCmd.AddCommand(cli.AgentCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if cerr := wire.Close(); cerr != nil && err == nil {
		err = cerr
	}

	if err != nil {
		var exit interface{ ExitCode() int }
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
