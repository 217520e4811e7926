package vessel

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidReport is returned for reports that cannot be stored or tracked.
var ErrInvalidReport = errors.New("invalid vessel report")

// Position is a WGS84 coordinate in decimal degrees.
type Position struct {
	// Latitude in degrees, positive north.
	Latitude float64
	// Longitude in degrees, positive east.
	Longitude float64
}

// Report is one polled observation of a vessel.
type Report struct {
	// MMSI is the unique identifier of the vessel transponder.
	MMSI int64 `json:"mmsi"`
	// Latitude in decimal degrees.
	Latitude float64 `json:"latitude"`
	// Longitude in decimal degrees.
	Longitude float64 `json:"longitude"`
	// Heading is the true heading in degrees.
	Heading float64 `json:"heading"`
	// SpeedOverGround is expressed in knots.
	SpeedOverGround float64 `json:"speed_over_ground"`
	// NavigationalStatus is the AIS status code.
	NavigationalStatus NavigationalStatus `json:"navigational_status"`
	// Name is the vessel name as broadcast.
	Name string `json:"name"`
	// Destination is the broadcast destination.
	Destination string `json:"destination"`
	// StatusText is the human readable form of NavigationalStatus.
	StatusText string `json:"status_text,omitempty"`
	// LastSeen is when the report was received upstream.
	LastSeen Timestamp `json:"last_seen"`
}

// Position returns the reported coordinate.
func (r *Report) Position() Position {
	return Position{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}

// SeenAt returns LastSeen as a time.Time.
func (r *Report) SeenAt() time.Time {
	return r.LastSeen.Time
}

// Validate checks the fields the stores and the tracker rely on.
func (r *Report) Validate() error {
	switch {
	case r.MMSI <= 0:
		return fmt.Errorf("%w: mmsi must be positive", ErrInvalidReport)
	case r.LastSeen.IsZero():
		return fmt.Errorf("%w: last_seen is required", ErrInvalidReport)
	case math.IsNaN(r.Latitude) || r.Latitude < -90 || r.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidReport, r.Latitude)
	case math.IsNaN(r.Longitude) || r.Longitude < -180 || r.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidReport, r.Longitude)
	case !r.NavigationalStatus.Valid():
		return fmt.Errorf("%w: navigational status %d out of range", ErrInvalidReport, r.NavigationalStatus)
	}

	return nil
}

// DisplayName returns the vessel name, or "Unknown" when it was not broadcast.
func (r *Report) DisplayName() string {
	if r.Name == "" {
		return "Unknown"
	}

	return r.Name
}
