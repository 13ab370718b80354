package cmd

import (
	"fmt"

	"github.com/drumscribe/drumscribe-api/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply the Drumscribe API database schema.

Migrations are GORM auto-migrations over the jobs and transcriptions
tables. Running this command is idempotent: existing tables are altered
in place and missing ones are created.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.InitializeWithMigrations()
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	defer db.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
