package main

import (
	"fmt"
	"log/slog"
	"os"

	ilog "github.com/nao1215/infostats/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for infostats.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infostats",
		Short: "Build and publish the info-statistics dataset",
		Long: `infostats collects problem reports, site searches and page views for every
page over a trailing window, rolls up the problem reports of multi-step
pages into their root page, normalises the counts by page views and
publishes the result as the info-statistics dataset.

The dataset token is read from PP_DATASET_TOKEN, optionally loaded from a
.env file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .infostats.yaml in current or home directory)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewScheduleCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewPublishCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a bool flag from the command or the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag retrieves a string flag from the command or the root's
// persistent flags.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// setupLogger creates the process logger from the global flags and makes
// it the slog default. Credentials are redacted in both formats.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getBoolFlag(cmd, "verbose")
	var logger *slog.Logger
	if getBoolFlag(cmd, "log-json") {
		logger = ilog.NewSecureJSONLogger(os.Stderr, verbose)
	} else {
		logger = ilog.NewSecureLogger(os.Stderr, verbose)
	}
	slog.SetDefault(logger)
	return logger
}
