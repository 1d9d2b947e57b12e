package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/iamcore/internal/auth/app"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Connect to the database and refresh ledger, apply migrations, and
serve the HTTP API until SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(configFile)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("config", configFile).Wrap(err)
	}

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return oops.Code("STARTUP_FAILED").Wrap(err)
	}
	return application.Run(ctx)
}
