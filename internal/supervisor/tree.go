package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/maritimalarm/maritime-alarm/internal/logger"
)

// TreeConfig holds the restart policy of the tree.
type TreeConfig struct {
	// FailureThreshold is the number of failures before backing off.
	FailureThreshold float64
	// FailureDecay is the decay rate of the failure count, in seconds.
	FailureDecay float64
	// FailureBackoff is the pause after the threshold is crossed.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long a service may take to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the production restart policy.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the root supervisor.
type Tree struct {
	root *suture.Supervisor
}

// NewTree creates a supervisor named name. Events are logged through the
// logger carried by ctx.
func NewTree(ctx context.Context, name string, cfg TreeConfig) *Tree {
	defaults := DefaultTreeConfig()

	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}

	if cfg.FailureDecay <= 0 {
		cfg.FailureDecay = defaults.FailureDecay
	}

	if cfg.FailureBackoff <= 0 {
		cfg.FailureBackoff = defaults.FailureBackoff
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	ctx = logger.WithName(ctx, "supervisor")

	root := suture.New(name, suture.Spec{
		EventHook:        eventHook(ctx),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})

	return &Tree{root: root}
}

// Add starts supervising svc.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Serve runs the tree until ctx is done.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel yields the result of Serve.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

func eventHook(ctx context.Context) suture.EventHook {
	return func(event suture.Event) {
		switch event.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
			logger.ErrorKV(ctx, "Supervised service failed", "event", event.String())
		case suture.EventTypeBackoff:
			logger.WarnKV(ctx, "Supervisor backing off", "event", event.String())
		default:
			logger.InfoKV(ctx, "Supervisor event", "event", event.String())
		}
	}
}
