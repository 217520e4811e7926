package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/geofence"
	"github.com/maritimalarm/maritime-alarm/internal/tracker"
)

const pollInterval = 10 * time.Second

//nolint:gochecknoglobals // Test fixtures.
var (
	t0 = time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)

	insideSvalbard  = vessel.Position{Latitude: 78, Longitude: 15}
	openSea         = vessel.Position{Latitude: 60, Longitude: 5}
	nearPipeline    = vessel.Position{Latitude: 70.005, Longitude: 20}
	defaultSettings = config.Default().Rules
)

func newAtlas() *geofence.Atlas {
	svalbard := orb.Polygon{{{10, 76}, {30, 76}, {30, 81}, {10, 81}, {10, 76}}}
	pipeline := orb.LineString{{19, 70}, {21, 70}}

	return geofence.NewAtlas(
		geofence.NewSet(geofence.SetBorder, 10_000, svalbard),
		geofence.NewSet(geofence.SetInfrastructure, 0, pipeline),
	)
}

func report(mmsi int64, pos vessel.Position, speed float64) vessel.Report {
	return vessel.Report{
		MMSI:            mmsi,
		Name:            "VESSEL",
		Latitude:        pos.Latitude,
		Longitude:       pos.Longitude,
		SpeedOverGround: speed,
	}
}

// poll feeds the same report every poll interval over [from, to] and collects alarms.
func poll(e *Evaluator, state *tracker.State, r vessel.Report, from, to time.Time) []alarm.Alarm {
	var fired []alarm.Alarm

	for now := from; !now.After(to); now = now.Add(pollInterval) {
		fired = append(fired, e.Observe(context.Background(), state, []vessel.Report{r}, now)...)
	}

	return fired
}

// flakyOracle fails every query while fail is set.
type flakyOracle struct {
	*geofence.Atlas

	fail bool
}

var errOracleDown = errors.New("oracle down")

func (o *flakyOracle) WithinBufferedZone(ctx context.Context, pos vessel.Position, set string) (bool, error) {
	if o.fail {
		return false, errOracleDown
	}

	return o.Atlas.WithinBufferedZone(ctx, pos, set)
}

func (o *flakyOracle) DistanceToNearest(ctx context.Context, pos vessel.Position, set string) (float64, error) {
	if o.fail {
		return 0, errOracleDown
	}

	return o.Atlas.DistanceToNearest(ctx, pos, set)
}

// TestLowSpeedDebounce fires exactly one alarm for 35 minutes of loitering.
func TestLowSpeedDebounce(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()

	fired := poll(e, state, report(1, openSea, 3), t0, t0.Add(35*time.Minute))

	require.Len(t, fired, 1)
	require.Equal(t, alarm.ReasonLowSpeedDwell, fired[0].Reason)
	require.Equal(t, int64(1), fired[0].MMSI)
	require.Equal(t, "VESSEL", fired[0].Name)
	require.Equal(t, "Speed between 2 and 5 knots for over 30 minutes", fired[0].Description)
}

// TestLowSpeedInterruption never fires when no single period exceeds the threshold.
func TestLowSpeedInterruption(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()

	var fired []alarm.Alarm

	fired = append(fired, poll(e, state, report(1, openSea, 3), t0, t0.Add(20*time.Minute))...)
	fired = append(fired, poll(e, state, report(1, openSea, 6), t0.Add(20*time.Minute+pollInterval), t0.Add(21*time.Minute))...)
	fired = append(fired, poll(e, state, report(1, openSea, 3), t0.Add(21*time.Minute+pollInterval), t0.Add(41*time.Minute))...)

	require.Empty(t, fired)
}

// TestProximityDwell fires once a vessel lingers near the pipeline for over an hour.
func TestProximityDwell(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()

	fired := poll(e, state, report(1, nearPipeline, 10), t0, t0.Add(time.Hour))
	require.Empty(t, fired)

	fired = poll(e, state, report(1, nearPipeline, 10), t0.Add(time.Hour+pollInterval), t0.Add(time.Hour+pollInterval))
	require.Len(t, fired, 1)
	require.Equal(t, alarm.ReasonProximityDwell, fired[0].Reason)
	require.True(t, fired[0].Time.Equal(t0.Add(time.Hour+pollInterval)))
}

// TestBerthedVesselsSkipped neither tracks nor evaluates anchored vessels.
func TestBerthedVesselsSkipped(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()

	anchored := report(1, nearPipeline, 3)
	anchored.NavigationalStatus = vessel.StatusAtAnchor

	require.Empty(t, poll(e, state, anchored, t0, t0.Add(2*time.Hour)))
	require.Zero(t, state.Len())
	require.Empty(t, e.Sweep(context.Background(), state, t0.Add(4*time.Hour)))
}

// TestAnchoredAfterTrackingStillGoesInactive keeps the inactivity timer of a
// tracked vessel running while it reports as berthed, and re-arms it once the
// vessel reports underway again.
func TestAnchoredAfterTrackingStillGoesInactive(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()

	require.Empty(t, e.Observe(context.Background(), state, []vessel.Report{report(1, openSea, 12)}, t0))

	anchored := report(1, openSea, 0)
	anchored.NavigationalStatus = vessel.StatusAtAnchor

	require.Empty(t, poll(e, state, anchored, t0.Add(pollInterval), t0.Add(2*time.Hour)))

	tracked, ok := state.Get(1)
	require.True(t, ok)
	require.True(t, tracked.LastSeenAt().Equal(t0))

	fired := e.Sweep(context.Background(), state, t0.Add(61*time.Minute))
	require.Len(t, fired, 1)
	require.Equal(t, alarm.ReasonInactive, fired[0].Reason)
	require.Empty(t, e.Sweep(context.Background(), state, t0.Add(2*time.Hour)))

	underway := t0.Add(3 * time.Hour)
	require.Empty(t, e.Observe(context.Background(), state, []vessel.Report{report(1, openSea, 12)}, underway))
	require.Empty(t, e.Sweep(context.Background(), state, underway.Add(30*time.Minute)))
	require.Len(t, e.Sweep(context.Background(), state, underway.Add(61*time.Minute)), 1)
}

// TestInactivityBorderException stays silent inside the buffered border zone.
func TestInactivityBorderException(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()

	e.Observe(context.Background(), state, []vessel.Report{
		report(1, insideSvalbard, 12),
		report(2, openSea, 12),
	}, t0)

	fired := e.Sweep(context.Background(), state, t0.Add(2*time.Hour))
	require.Len(t, fired, 1)
	require.Equal(t, int64(2), fired[0].MMSI)
	require.Equal(t, alarm.ReasonInactive, fired[0].Reason)
	require.Equal(t, "Inactive for over 1 hour", fired[0].Description)

	// A persistently silent vessel fires once.
	require.Empty(t, e.Sweep(context.Background(), state, t0.Add(3*time.Hour)))
}

// TestInactivityRearm fires again after a fresh report and another silence.
func TestInactivityRearm(t *testing.T) {
	t.Parallel()

	e := New(newAtlas(), defaultSettings)
	state := tracker.NewState()
	ctx := context.Background()

	e.Observe(ctx, state, []vessel.Report{report(1, openSea, 12)}, t0)
	require.Empty(t, e.Sweep(ctx, state, t0.Add(time.Hour)))
	require.Len(t, e.Sweep(ctx, state, t0.Add(61*time.Minute)), 1)

	refreshed := t0.Add(62 * time.Minute)
	e.Observe(ctx, state, []vessel.Report{report(1, openSea, 12)}, refreshed)
	require.Empty(t, e.Sweep(ctx, state, refreshed.Add(30*time.Minute)))

	fired := e.Sweep(ctx, state, refreshed.Add(2*time.Hour))
	require.Len(t, fired, 1)
	require.Equal(t, alarm.ReasonInactive, fired[0].Reason)
}

// TestOracleFailureIsUnknown keeps dwell progress and inactivity unlatched while queries fail.
func TestOracleFailureIsUnknown(t *testing.T) {
	t.Parallel()

	oracle := &flakyOracle{Atlas: newAtlas()}
	e := New(oracle, defaultSettings)
	state := tracker.NewState()
	ctx := context.Background()

	require.Empty(t, e.Observe(ctx, state, []vessel.Report{report(1, nearPipeline, 10)}, t0))

	oracle.fail = true
	require.Empty(t, e.Observe(ctx, state, []vessel.Report{report(1, nearPipeline, 10)}, t0.Add(30*time.Minute)))

	oracle.fail = false
	fired := e.Observe(ctx, state, []vessel.Report{report(1, nearPipeline, 10)}, t0.Add(61*time.Minute))
	require.Len(t, fired, 1)
	require.Equal(t, alarm.ReasonProximityDwell, fired[0].Reason)

	oracle.fail = true
	require.Empty(t, e.Sweep(ctx, state, t0.Add(3*time.Hour)))

	oracle.fail = false
	require.Len(t, e.Sweep(ctx, state, t0.Add(3*time.Hour)), 1)
}

// TestCustomRuleTable reuses the dwell timer for an extra rule.
func TestCustomRuleTable(t *testing.T) {
	t.Parallel()

	fast := Rule{
		Reason:      alarm.ReasonLowSpeedDwell,
		Threshold:   time.Minute,
		Description: "Stopped",
		Condition:   SpeedBetween(0, 0.5),
	}

	e := NewWithRules(newAtlas(), time.Hour, fast)
	require.Len(t, e.Rules(), 1)

	fired := poll(e, tracker.NewState(), report(1, openSea, 0), t0, t0.Add(2*time.Minute))
	require.Len(t, fired, 1)
	require.Equal(t, "Stopped", fired[0].Description)
}
