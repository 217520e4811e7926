//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.ErrorIs(t, err, errAddressRequired)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	_, ok := ctx.Deadline()
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestRecentAlarms_RejectsCount asserts out of range counts never reach the wire.
func TestRecentAlarms_RejectsCount(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.RecentAlarms(context.Background(), -1)
	require.ErrorIs(t, err, errCountOutOfRange)
}

func TestClose_Nil(t *testing.T) {
	t.Parallel()

	var c *Client

	require.NoError(t, c.Close())
}
