package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maritimalarm/maritime-alarm/internal/service/server"
)

var (
	// serveOptions holds the serve flag values.
	serveOptions = new(server.Options)

	// serveCmd runs the engine with its HTTP and gRPC transports.
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the alarm engine, the receive endpoint and the alarm feeds.",
		Long: `Starts the alarm engine together with the HTTP receive endpoint, the websocket
alarm feed and the gRPC feed. Only the port of grpc_addr is used for listening
unless --grpc-addr overrides it.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			serveOptions.ConfigPath = configPath

			return server.Run(ctx, serveOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().StringVar(&serveOptions.HTTPAddress, "http-addr", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveOptions.GRPCAddress, "grpc-addr", "", "gRPC listen address")
	serveCmd.Flags().StringVarP(&serveOptions.SnapshotFile, "snapshot-file", "s", "", "path of the vessel snapshot store")

	rootCmd.AddCommand(serveCmd)
}
