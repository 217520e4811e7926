package alarms

import (
	"context"
	"fmt"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
)

// Repository defines persistence operations for fired alarms.
type Repository interface {
	// Append stores the alarm after the previous ones.
	Append(ctx context.Context, fired alarm.Alarm) error
	// Recent returns the last n alarms oldest first, every alarm when n <= 0.
	Recent(ctx context.Context, n int) ([]alarm.Alarm, error)
	// Close releases the backend.
	Close() error
}

// Open returns the repository selected by the store settings.
func Open(store config.AlarmStore) (Repository, error) {
	switch store.Driver {
	case config.DriverSQLite:
		repo, err := OpenSQLite(store.Path)
		if err != nil {
			return nil, err
		}

		return repo, nil
	case config.DriverFile, "":
		return NewFileRepository(store.Path), nil
	default:
		return nil, fmt.Errorf("unsupported alarm store driver %q", store.Driver)
	}
}

// tail returns the last n elements, everything when n <= 0.
func tail(all []alarm.Alarm, n int) []alarm.Alarm {
	if n <= 0 || n >= len(all) {
		return all
	}

	return all[len(all)-n:]
}
