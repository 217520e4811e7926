package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/repository/alarms"
)

// Source supplies the current set of known vessels on each poll.
type Source interface {
	Snapshot(ctx context.Context) ([]vessel.Report, error)
}

// Sink receives fired alarms.
type Sink interface {
	Deliver(ctx context.Context, fired alarm.Alarm) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, fired alarm.Alarm) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, fired alarm.Alarm) error {
	return f(ctx, fired)
}

// Target is a named sink. The name labels delivery logs and metrics.
type Target struct {
	Name string
	Sink Sink
}

// StoreSink appends alarms to a repository.
func StoreSink(repo alarms.Repository) Sink {
	return SinkFunc(repo.Append)
}

// snapshotReader is the read side of the snapshot store.
type snapshotReader interface {
	GetAll(ctx context.Context) (map[int64]vessel.Report, error)
}

// StoreSource polls the local snapshot store.
type StoreSource struct {
	store snapshotReader
}

// NewStoreSource wraps a snapshot store.
func NewStoreSource(store snapshotReader) *StoreSource {
	return &StoreSource{store: store}
}

// Snapshot returns every stored report ordered by MMSI.
func (s *StoreSource) Snapshot(ctx context.Context) ([]vessel.Report, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot store: %w", err)
	}

	reports := make([]vessel.Report, 0, len(all))
	for _, mmsi := range slices.Sorted(maps.Keys(all)) {
		reports = append(reports, all[mmsi])
	}

	return reports, nil
}

// FreshSource forwards only the reports whose last-seen time advanced since
// the previous snapshot. Stores keep a vessel for hours after its last
// report, so without it a silent vessel would look active on every poll.
type FreshSource struct {
	source Source

	mu   sync.Mutex
	seen map[int64]time.Time
}

// NewFreshSource wraps source.
func NewFreshSource(source Source) *FreshSource {
	return &FreshSource{
		source: source,
		seen:   make(map[int64]time.Time),
	}
}

// Snapshot returns the new reports of the wrapped source. Vessels missing from
// the wrapped snapshot are forgotten.
func (s *FreshSource) Snapshot(ctx context.Context) ([]vessel.Report, error) {
	reports, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[int64]struct{}, len(reports))
	fresh := make([]vessel.Report, 0, len(reports))

	for _, report := range reports {
		present[report.MMSI] = struct{}{}

		last, ok := s.seen[report.MMSI]
		if ok && !report.SeenAt().After(last) {
			continue
		}

		s.seen[report.MMSI] = report.SeenAt()
		fresh = append(fresh, report)
	}

	maps.DeleteFunc(s.seen, func(mmsi int64, _ time.Time) bool {
		_, ok := present[mmsi]

		return !ok
	})

	return fresh, nil
}
