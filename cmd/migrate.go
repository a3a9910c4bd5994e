package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var confirmDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations(cfg, logger, false)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration (drops lifecycle tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmDown {
			return errors.New("refusing to drop the schema without --yes")
		}
		return runMigrations(cfg, logger, true)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	migrateDownCmd.Flags().BoolVar(&confirmDown, "yes", false, "confirm rolling back the schema")
}
