package alarm

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAlarm is returned for alarm payloads that cannot be stored.
var ErrInvalidAlarm = errors.New("invalid alarm")

// Reason identifies the rule that fired.
type Reason string

// Known alarm reasons.
const (
	// ReasonInactive fires when a vessel stops reporting.
	ReasonInactive Reason = "INACTIVE"
	// ReasonProximityDwell fires when a vessel lingers near infrastructure.
	ReasonProximityDwell Reason = "PROXIMITY_DWELL"
	// ReasonLowSpeedDwell fires when a vessel loiters at low speed.
	ReasonLowSpeedDwell Reason = "LOW_SPEED_DWELL"
)

// Valid reports whether r is one of the known reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonInactive, ReasonProximityDwell, ReasonLowSpeedDwell:
		return true
	default:
		return false
	}
}

// Alarm is a fired suspicion record.
type Alarm struct {
	// ID uniquely identifies the alarm.
	ID string `json:"id,omitempty"`
	// Name is the vessel name at the time the alarm fired.
	Name string `json:"name"`
	// MMSI identifies the vessel.
	MMSI int64 `json:"mmsi"`
	// Reason is the rule that fired.
	Reason Reason `json:"reason"`
	// Description is a human readable explanation.
	Description string `json:"description,omitempty"`
	// Time is when the alarm fired.
	Time time.Time `json:"time"`
}

// New builds an alarm with a fresh ID.
func New(name string, mmsi int64, reason Reason, description string, firedAt time.Time) Alarm {
	return Alarm{
		ID:          uuid.NewString(),
		Name:        name,
		MMSI:        mmsi,
		Reason:      reason,
		Description: description,
		Time:        firedAt.UTC(),
	}
}

// Validate checks the fields required to persist an alarm.
func (a *Alarm) Validate() error {
	switch {
	case a.MMSI <= 0:
		return fmt.Errorf("%w: mmsi must be positive", ErrInvalidAlarm)
	case !a.Reason.Valid():
		return fmt.Errorf("%w: unknown reason %q", ErrInvalidAlarm, a.Reason)
	case a.Time.IsZero():
		return fmt.Errorf("%w: time is required", ErrInvalidAlarm)
	}

	return nil
}
