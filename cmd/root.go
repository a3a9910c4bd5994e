// Package cmd holds the virtualexpo command line: the API server with its
// lifecycle ticker, schema migrations and operator utilities.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"virtualexpo/config"
)

var (
	logLevel string

	// Set by the root PersistentPreRunE for every subcommand.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "virtualexpo",
	Short: "Event and session lifecycle scheduler",
	Long: `Runs the lifecycle scheduler of the virtual exhibition backend: events move
payment_done -> live -> closed and sessions scheduled -> live -> ended on a
fixed tick, with admin overrides served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		cfg = loaded
		logger = config.NewLogger(cfg.Environment, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
}
