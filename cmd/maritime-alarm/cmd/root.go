package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maritimalarm/maritime-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file. Empty means the default file if present.
	configPath string

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "maritime-alarm",
		Short: "Watch vessel positions and raise suspicion alarms.",
		Long: `Polls a vessel snapshot store, tracks every vessel and fires alarms when a vessel
goes silent away from the border, lingers near critical infrastructure or
loiters at low speed. Alarms are stored, pushed to websocket displays and
served over gRPC.`,
		SilenceUsage: true,
	}
)

// Execute runs the CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is canceled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
}
