package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kawanishi0117/agent-company-sub008/internal/adapters/filestore"
	"github.com/kawanishi0117/agent-company-sub008/internal/config"
	"github.com/kawanishi0117/agent-company-sub008/internal/db"
	"github.com/kawanishi0117/agent-company-sub008/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Initialize the agentco data directory",
		Long:        `Create .agentco/config.yaml with the defaults, the ticket, run and waiver directories, and the run ledger.`,
		Annotations: map[string]string{skipWire: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.Path(".")
			}

			created, err := config.WriteDefault(configPath)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("✓ Config written to %s\n", configPath)
			} else {
				fmt.Printf("✓ Config already exists at %s\n", configPath)
			}

			cfg, err := wire.LoadConfig()
			if err != nil {
				return err
			}

			layout := filestore.Layout{Root: cfg.DataDir}
			if err := layout.EnsureDirs(); err != nil {
				return fmt.Errorf("failed to create data directories: %w", err)
			}

			conn, err := db.Open(db.PathIn(cfg.DataDir))
			if err != nil {
				return err
			}
			defer conn.Close()

			fmt.Printf("✓ Data directory ready at %s\n", filepath.Clean(cfg.DataDir))
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  agentco ticket create my-project \"Build the checkout flow\"")
			fmt.Println("  agentco agent list")

			return nil
		},
	}
}
