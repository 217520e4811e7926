package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maritimalarm/maritime-alarm/internal/service/client"
)

var (
	// alarmsOptions holds the alarms flag values.
	alarmsOptions = new(client.Options)

	// alarmsCmd prints the recent alarms from a running server.
	alarmsCmd = &cobra.Command{
		Use:   "alarms [server-address]",
		Short: "Print the most recent alarms.",
		Long: `Connects to the gRPC alarm feed and prints the most recent alarms.
With --follow it keeps polling and prints new alarms as they fire.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if len(args) > 0 {
				alarmsOptions.ServerAddress = args[0]
			}

			alarmsOptions.ConfigPath = configPath
			alarmsOptions.Out = cmd.OutOrStdout()

			return client.Run(ctx, alarmsOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	alarmsCmd.Flags().IntVarP(&alarmsOptions.Count, "count", "n", 0, "number of alarms to print (server default when 0)")
	alarmsCmd.Flags().BoolVarP(&alarmsOptions.Follow, "follow", "f", false, "keep printing new alarms")
	alarmsCmd.Flags().DurationVar(&alarmsOptions.Interval, "interval", 0, "polling interval when following")

	rootCmd.AddCommand(alarmsCmd)
}
