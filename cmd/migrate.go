package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vistaar-ai/vistaar/db"
	"github.com/vistaar-ai/vistaar/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	Long: `Applies any pending schema migrations to the configured PostgreSQL
database. The serve command also migrates on startup; this command is
for deploy pipelines that migrate separately from rollout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		cmd.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
