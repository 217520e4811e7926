package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maritimalarm/maritime-alarm/internal/service/ingest"
)

var (
	// ingestOptions holds the ingest flag values.
	ingestOptions = new(ingest.Options)

	// ingestCmd consumes the AIS stream.
	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Consume the AIS stream into the vessel snapshot store.",
		Long: `Authenticates with OAuth2 client credentials, reads the AIS stream and stores
every vessel from the shadow fleet list or the configured flag states, either in
the local snapshot store or through a remote receive endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			ingestOptions.ConfigPath = configPath

			return ingest.Run(ctx, ingestOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	ingestCmd.Flags().StringVar(&ingestOptions.ReceiveURL, "receive-url", "", "remote receive endpoint")
	ingestCmd.Flags().StringVarP(&ingestOptions.SnapshotFile, "snapshot-file", "s", "", "path of the vessel snapshot store")

	rootCmd.AddCommand(ingestCmd)
}
