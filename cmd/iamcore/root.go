package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the iamcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iamcore",
		Short: "iamcore - identity and access service",
		Long: `iamcore signs users up and in, issues short-lived access tokens and
single-use refresh tokens, and manages TOTP two-factor enrollment.

Configuration is read from the optional --config YAML file and from
environment variables such as AUTH_JWT_SECRET and AUTH_DATABASE_DRIVER.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
