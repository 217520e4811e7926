package tracker

import (
	"maps"
	"slices"
	"time"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
)

// Vessel is the tracking state of one MMSI.
type Vessel struct {
	// MMSI identifies the vessel.
	MMSI int64
	// Name is the last broadcast name.
	Name string
	// Position is the last known coordinate.
	Position vessel.Position
	// Inactivity is armed on every report; its start is the last-seen time.
	Inactivity Timer

	dwell map[alarm.Reason]*Timer
}

// LastSeenAt returns when the vessel last reported.
func (v *Vessel) LastSeenAt() time.Time {
	return v.Inactivity.Since()
}

// Dwell returns the timer of a dwell rule, creating it on first use.
func (v *Vessel) Dwell(reason alarm.Reason) *Timer {
	timer, ok := v.dwell[reason]
	if !ok {
		timer = new(Timer)
		v.dwell[reason] = timer
	}

	return timer
}

// State maps MMSI to tracking state. Entries are created on first
// observation and never removed.
type State struct {
	vessels map[int64]*Vessel
}

// NewState returns an empty state.
func NewState() *State {
	return &State{vessels: make(map[int64]*Vessel)}
}

// Observe records a fresh report. Berthed vessels are skipped for the cycle
// and leave their state untouched, in which case ok is false.
func (s *State) Observe(report *vessel.Report, now time.Time) (tracked *Vessel, ok bool) {
	if report.NavigationalStatus.Berthed() {
		return nil, false
	}

	tracked, exists := s.vessels[report.MMSI]
	if !exists {
		tracked = &Vessel{
			MMSI:  report.MMSI,
			dwell: make(map[alarm.Reason]*Timer),
		}
		s.vessels[report.MMSI] = tracked
	}

	// A fresh report proves the vessel is alive and re-arms the inactivity rule.
	tracked.Inactivity.Arm(now)
	tracked.Name = report.DisplayName()
	tracked.Position = report.Position()

	return tracked, true
}

// Get returns the state of one vessel.
func (s *State) Get(mmsi int64) (*Vessel, bool) {
	tracked, ok := s.vessels[mmsi]

	return tracked, ok
}

// Len returns the number of tracked vessels.
func (s *State) Len() int {
	return len(s.vessels)
}

// Vessels returns every tracked vessel ordered by MMSI.
func (s *State) Vessels() []*Vessel {
	keys := slices.Sorted(maps.Keys(s.vessels))

	result := make([]*Vessel, 0, len(keys))
	for _, mmsi := range keys {
		result = append(result, s.vessels[mmsi])
	}

	return result
}
