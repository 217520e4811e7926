package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/service/common"
)

// Options configures the alarms command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the gRPC address from config when specified.
	ServerAddress string

	// Count is how many recent alarms to print. Zero lets the server decide.
	Count int

	// Follow keeps polling for new alarms until cancelled.
	Follow bool

	// Interval is the follow polling interval. Defaults to the config poll interval.
	Interval time.Duration

	// Out receives the printed alarms. Defaults to stdout.
	Out io.Writer
}

// feedReader is the part of the feed client the command uses.
type feedReader interface {
	RecentAlarms(ctx context.Context, n int) ([]alarm.Alarm, error)
}

// Run prints recent alarms and optionally follows the feed.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarms")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = cfg.PollInterval
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Reading alarm feed", "server_address", serverAddress, "follow", opts.Follow)

	return follow(ctx, client, opts, interval)
}

func follow(ctx context.Context, client feedReader, opts *Options, interval time.Duration) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	seen := make(map[string]struct{})

	// emit writes the alarms not printed before.
	emit := func(strict bool) error {
		recent, err := client.RecentAlarms(ctx, opts.Count)
		if err != nil {
			if strict {
				return err
			}

			logger.WarnKV(ctx, "RecentAlarms failed", "error", err)

			return nil
		}

		for _, fired := range recent {
			if _, ok := seen[fired.ID]; ok {
				continue
			}

			seen[fired.ID] = struct{}{}

			if _, err := fmt.Fprintln(out, formatAlarm(fired)); err != nil {
				return fmt.Errorf("print alarm: %w", err)
			}
		}

		return nil
	}

	if err := emit(true); err != nil || !opts.Follow {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := emit(false); err != nil {
				return err
			}
		}
	}
}

// formatAlarm renders an alarm as a single display line.
func formatAlarm(fired alarm.Alarm) string {
	name := fired.Name
	if name == "" {
		name = "Unknown"
	}

	description := fired.Description
	if description == "" {
		description = string(fired.Reason)
	}

	return fmt.Sprintf("%s  %-20s  %9d  %s",
		fired.Time.UTC().Format(time.DateTime), name, fired.MMSI, description)
}
