package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/iamcore/internal/auth/app"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations to the configured sqlite or postgres database.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(configFile)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("config", configFile).Wrap(err)
	}

	cmd.Println("Running migrations...")
	if err := app.Migrate(cmd.Context(), cfg); err != nil {
		return oops.Code("MIGRATION_FAILED").With("driver", cfg.DatabaseDriver).Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
