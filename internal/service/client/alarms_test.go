package client

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
)

type fakeFeed struct {
	mu     sync.Mutex
	alarms []alarm.Alarm
	err    error
}

func (f *fakeFeed) RecentAlarms(_ context.Context, n int) ([]alarm.Alarm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	if n >= len(f.alarms) {
		return append([]alarm.Alarm(nil), f.alarms...), nil
	}

	return append([]alarm.Alarm(nil), f.alarms[len(f.alarms)-n:]...), nil
}

func (f *fakeFeed) add(fired alarm.Alarm) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alarms = append(f.alarms, fired)
}

func fired(id string, mmsi int64) alarm.Alarm {
	return alarm.Alarm{
		ID:          id,
		Name:        "NORNE",
		MMSI:        mmsi,
		Reason:      alarm.ReasonInactive,
		Description: "Inactive for over 1 hour",
		Time:        time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestFollow_PrintsOnce(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{alarms: []alarm.Alarm{fired("a", 1), fired("b", 2)}}

	var out bytes.Buffer

	err := follow(context.Background(), feed, &Options{Count: 4, Out: &out}, time.Second)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Inactive for over 1 hour")
	require.Contains(t, lines[0], "2026-10-16 12:00:00")
}

func TestFollow_FirstReadErrorIsFatal(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{err: errors.New("unavailable")}

	err := follow(context.Background(), feed, &Options{Out: new(bytes.Buffer)}, time.Second)
	require.Error(t, err)
}

// TestFollow_PrintsNewAlarms checks that following prints each alarm exactly once.
func TestFollow_PrintsNewAlarms(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		feed := &fakeFeed{alarms: []alarm.Alarm{fired("a", 1)}}
		out := new(bytes.Buffer)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- follow(ctx, feed, &Options{Count: 4, Follow: true, Out: out}, time.Minute)
		}()

		synctest.Wait()
		feed.add(fired("b", 2))

		time.Sleep(time.Minute)
		synctest.Wait()

		time.Sleep(time.Minute)
		synctest.Wait()

		cancel()
		require.NoError(t, <-done)

		require.Equal(t, 2, strings.Count(out.String(), "\n"))
		require.Contains(t, out.String(), "        2  ")
	})
}

func TestFormatAlarm_Fallbacks(t *testing.T) {
	t.Parallel()

	line := formatAlarm(alarm.Alarm{MMSI: 5, Reason: alarm.ReasonProximityDwell})
	require.Contains(t, line, "Unknown")
	require.Contains(t, line, string(alarm.ReasonProximityDwell))
}
