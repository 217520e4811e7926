package alarms

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
)

func backends(t *testing.T) map[string]Repository {
	t.Helper()

	dir := t.TempDir()

	sqliteRepo, err := OpenSQLite(filepath.Join(dir, "alarms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]Repository{
		"file":   NewFileRepository(filepath.Join(dir, "alarms.json")),
		"sqlite": sqliteRepo,
	}
}

func fire(mmsi int64, reason alarm.Reason, at time.Time) alarm.Alarm {
	return alarm.New("VESSEL", mmsi, reason, "test alarm", at)
}

// TestRepository_EmptyRecent verifies an untouched store reads as an empty list.
func TestRepository_EmptyRecent(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			recent, err := repo.Recent(context.Background(), 4)
			require.NoError(t, err)
			require.NotNil(t, recent)
			require.Empty(t, recent)
		})
	}
}

// TestRepository_AppendOrder keeps insertion order and truncates to the newest n.
func TestRepository_AppendOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := range 6 {
				require.NoError(t, repo.Append(ctx, fire(int64(100+i), alarm.ReasonInactive, base.Add(time.Duration(i)*time.Minute))))
			}

			// Duplicates are kept.
			require.NoError(t, repo.Append(ctx, fire(105, alarm.ReasonInactive, base.Add(6*time.Minute))))

			all, err := repo.Recent(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 7)
			require.Equal(t, int64(100), all[0].MMSI)

			recent, err := repo.Recent(ctx, 4)
			require.NoError(t, err)
			require.Len(t, recent, 4)
			require.Equal(t, []int64{103, 104, 105, 105}, []int64{recent[0].MMSI, recent[1].MMSI, recent[2].MMSI, recent[3].MMSI})
			require.True(t, recent[3].Time.Equal(base.Add(6*time.Minute)))
			require.Equal(t, alarm.ReasonInactive, recent[3].Reason)

			more, err := repo.Recent(ctx, 50)
			require.NoError(t, err)
			require.Len(t, more, 7)
		})
	}
}

// TestRepository_RejectsInvalid refuses to store malformed alarms.
func TestRepository_RejectsInvalid(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.Append(context.Background(), alarm.Alarm{Reason: alarm.ReasonInactive, Time: time.Now()})
			require.ErrorIs(t, err, alarm.ErrInvalidAlarm)

			all, err := repo.Recent(context.Background(), 0)
			require.NoError(t, err)
			require.Empty(t, all)
		})
	}
}

// TestSQLiteRepository_Reopen keeps alarms and the schema across restarts.
func TestSQLiteRepository_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "alarms.db")

	repo, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), fire(1, alarm.ReasonLowSpeedDwell, time.Now())))
	require.NoError(t, repo.Close())

	repo, err = OpenSQLite(path)
	require.NoError(t, err)

	defer func() { _ = repo.Close() }()

	all, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, alarm.ReasonLowSpeedDwell, all[0].Reason)
}

// TestOpen selects the backend from the settings.
func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	repo, err := Open(config.AlarmStore{Driver: config.DriverFile, Path: filepath.Join(dir, "a.json")})
	require.NoError(t, err)
	require.IsType(t, &FileRepository{}, repo)

	repo, err = Open(config.AlarmStore{Driver: config.DriverSQLite, Path: filepath.Join(dir, "a.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteRepository{}, repo)
	require.NoError(t, repo.Close())

	_, err = os.Stat(filepath.Join(dir, "a.db"))
	require.NoError(t, err)

	_, err = Open(config.AlarmStore{Driver: "redis"})
	require.Error(t, err)
}
