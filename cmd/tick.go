package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"virtualexpo/internal/scheduler"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one lifecycle tick and print what moved",
	Long: `Runs a single lifecycle tick against the configured database and prints the
result as JSON. Useful for cron-driven deployments and for debugging.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ticker := scheduler.NewTicker(a.events, a.sessions, cfg.TickInterval, logger)
		result, tickErr := ticker.RunOnce(cmd.Context())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		return tickErr
	},
}

func init() {
	rootCmd.AddCommand(tickCmd)
}
