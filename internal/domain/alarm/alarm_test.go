package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewAssignsIdentity verifies that every fired alarm gets its own ID.
func TestNewAssignsIdentity(t *testing.T) {
	t.Parallel()

	firedAt := time.Date(2024, 4, 2, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	first := New("NORDIC", 273123456, ReasonInactive, "Inactive for over 1 hour", firedAt)
	second := New("NORDIC", 273123456, ReasonInactive, "Inactive for over 1 hour", firedAt)

	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, time.UTC, first.Time.Location())
	require.True(t, first.Time.Equal(firedAt))
	require.NoError(t, first.Validate())
}

// TestValidate checks the rejected payloads.
func TestValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	cases := map[string]Alarm{
		"missing mmsi":   {Reason: ReasonInactive, Time: now},
		"unknown reason": {MMSI: 1, Reason: "SPEEDING", Time: now},
		"missing time":   {MMSI: 1, Reason: ReasonLowSpeedDwell},
	}

	for name, candidate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, candidate.Validate(), ErrInvalidAlarm)
		})
	}
}
