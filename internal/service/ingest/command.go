package ingest

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/remote"
	"github.com/maritimalarm/maritime-alarm/internal/repository/snapshot"
)

// Options configures the ingest command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ReceiveURL overrides the remote receive endpoint from config.
	ReceiveURL string
	// SnapshotFile overrides the local snapshot store path.
	SnapshotFile string
}

// Run consumes the AIS stream until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.ReceiveURL != "" {
		settings.Ingest.ReceiveURL = opts.ReceiveURL
	}

	if opts.SnapshotFile != "" {
		settings.SnapshotFile = opts.SnapshotFile
	}

	if err = settings.Ingest.Validate(); err != nil {
		return err
	}

	logger.Configure(settings.LogLevel, logger.Format(settings.LogFormat))

	ctx = logger.WithName(ctx, "ingest")

	mmsis, err := LoadShadowFleet(settings.Ingest.ShadowFleetFile)
	if err != nil {
		// The stream is still useful with the country filter alone.
		logger.WarnKV(ctx, "Shadow fleet list unavailable", "error", err)
	}

	publisher, err := newPublisher(settings)
	if err != nil {
		return err
	}

	credentials := clientcredentials.Config{
		ClientID:     settings.Ingest.ClientID,
		ClientSecret: settings.Ingest.ClientSecret,
		TokenURL:     settings.Ingest.TokenURL,
		Scopes:       strings.Fields(settings.Ingest.Scope),
	}

	consumer := NewConsumer(ConsumerOptions{
		Client:            credentials.Client(ctx),
		StreamURL:         settings.Ingest.StreamURL,
		CountryCodes:      settings.Ingest.CountryCodes,
		Filter:            NewFilter(mmsis, settings.Ingest.CountryCodes),
		Publisher:         publisher,
		ReconnectInterval: settings.Ingest.ReconnectInterval,
	})

	logger.InfoKV(ctx, "Consuming AIS stream",
		"stream_url", settings.Ingest.StreamURL,
		"country_codes", settings.Ingest.CountryCodes,
		"shadow_fleet", len(mmsis))

	return consumer.Consume(ctx)
}

// newPublisher posts to the remote receive endpoint when one is configured
// and writes to the local snapshot store otherwise.
func newPublisher(settings *config.Config) (Publisher, error) {
	if settings.Ingest.ReceiveURL != "" {
		client, err := remote.NewClient("receive", settings.Ingest.ReceiveURL, settings.Timeout)
		if err != nil {
			return nil, fmt.Errorf("create receive client: %w", err)
		}

		return PublisherFunc(client.PostShip), nil
	}

	store := snapshot.NewFileRepository(settings.SnapshotFile)

	return PublisherFunc(func(ctx context.Context, report vessel.Report) error {
		return store.Upsert(ctx, report)
	}), nil
}
