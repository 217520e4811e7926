package server

import (
	"context"
	"fmt"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/repository/alarms"
)

// trackedCounter reports the size of the engine state.
type trackedCounter interface {
	Tracked() int
}

// feedService serves the gRPC feed from the alarm store and the engine.
// It is unexported to keep the transport decoupled from the implementation.
type feedService struct {
	// alarms holds the fired alarm history.
	alarms alarms.Repository
	// engine reports how many vessels are tracked.
	engine trackedCounter
}

// Recent returns the last n alarms from the store.
func (s *feedService) Recent(ctx context.Context, n int) ([]alarm.Alarm, error) {
	recent, err := s.alarms.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("read recent alarms: %w", err)
	}

	return recent, nil
}

// Tracked returns the number of vessels in the engine state.
func (s *feedService) Tracked() int {
	return s.engine.Tracked()
}
