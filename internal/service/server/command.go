package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/version"
)

// Options controls the server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HTTPAddress overrides the HTTP listen address.
	HTTPAddress string
	// GRPCAddress overrides the gRPC listen address.
	GRPCAddress string
	// SnapshotFile overrides the vessel snapshot store path.
	SnapshotFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the engine and its transports and blocks until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.SnapshotFile != "" {
		settings.SnapshotFile = opts.SnapshotFile
	}

	// The configured gRPC address is shared with clients, so only its port is bound.
	grpcListen, err := resolveListenAddress(settings.GRPCAddress, opts.GRPCAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	settings.GRPCAddress = grpcListen

	if err = config.Validate(settings); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	if !logger.Configure(settings.LogLevel, logger.Format(settings.LogFormat)) {
		logger.Warnf(ctx, "Unknown log level %q, keeping %s", settings.LogLevel, logger.Level())
	}

	ctx = logger.WithName(ctx, "server")
	logger.InfoKV(ctx, "Starting", version.KV()...)

	app, err := New(ctx, settings)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close alarm store", "error", closeErr)
		}
	}()

	return app.Serve(ctx)
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return ":" + port, nil
}
