//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/maritimalarm/maritime-alarm/internal/api/grpc/feed"
	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/version"
)

// Client wraps the gRPC alarm feed client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alarm server.
	conn *grpc.ClientConn
	// api is the alarm feed client.
	api *feed.Client

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errCountOutOfRange is returned for alarm counts the feed cannot serve.
	errCountOutOfRange = errors.New("alarm count out of range")
)

// Dial establishes a gRPC connection to the alarm server.
// The transport is insecure; deploy on a trusted network or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial alarm server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         feed.NewClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// RecentAlarms retrieves the last n alarms, oldest first.
func (c *Client) RecentAlarms(ctx context.Context, n int) ([]alarm.Alarm, error) {
	if n < 0 || n > feed.MaxRecent {
		return nil, fmt.Errorf("%w: %d", errCountOutOfRange, n)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	list, err := c.api.RecentAlarms(callCtx, wrapperspb.UInt32(uint32(n))) //nolint:gosec // Range checked above.
	if err != nil {
		return nil, fmt.Errorf("recent alarms: %w", err)
	}

	return feed.AlarmsFromList(list)
}

// TrackedVessels retrieves the number of vessels the engine tracks.
func (c *Client) TrackedVessels(ctx context.Context) (int, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.TrackedVessels(callCtx, new(emptypb.Empty))
	if err != nil {
		return 0, fmt.Errorf("tracked vessels: %w", err)
	}

	return int(resp.GetValue()), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
