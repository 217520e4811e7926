package geofence

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
)

// Named sets known to the rules.
const (
	SetBorder         = "border"
	SetInfrastructure = "infrastructure"
)

// ErrUnknownSet is returned when a query names a set the atlas does not hold.
var ErrUnknownSet = errors.New("unknown geometry set")

// Set is a named collection of geometries with an optional buffer.
type Set struct {
	// Name identifies the set in queries.
	Name string
	// BufferMeters widens every geometry of the set.
	BufferMeters float64
	// Geometries are in WGS84 longitude/latitude order.
	Geometries []orb.Geometry
}

// NewSet builds a set from in-memory geometries.
func NewSet(name string, bufferMeters float64, geometries ...orb.Geometry) *Set {
	return &Set{
		Name:         name,
		BufferMeters: bufferMeters,
		Geometries:   geometries,
	}
}

// Atlas is a read-only registry of geometry sets. It is safe for concurrent use.
type Atlas struct {
	sets map[string]*Set
}

// NewAtlas registers the given sets by name.
func NewAtlas(sets ...*Set) *Atlas {
	a := &Atlas{sets: make(map[string]*Set, len(sets))}
	for _, set := range sets {
		a.sets[set.Name] = set
	}

	return a
}

// Load builds the border and infrastructure sets from their GeoJSON files.
func Load(cfg config.Geofence) (*Atlas, error) {
	border, err := LoadSet(SetBorder, cfg.Border.BufferKM*1000, cfg.Border.Files...)
	if err != nil {
		return nil, err
	}

	infrastructure, err := LoadSet(SetInfrastructure, cfg.Infrastructure.BufferKM*1000, cfg.Infrastructure.Files...)
	if err != nil {
		return nil, err
	}

	return NewAtlas(border, infrastructure), nil
}

// Sets returns the number of geometries per set name.
func (a *Atlas) Sets() map[string]int {
	result := make(map[string]int, len(a.sets))
	for name, set := range a.sets {
		result[name] = len(set.Geometries)
	}

	return result
}

// WithinBufferedZone reports whether pos lies inside a geometry of the set or
// within the set's buffer distance of one.
func (a *Atlas) WithinBufferedZone(ctx context.Context, pos vessel.Position, setName string) (bool, error) {
	distance, err := a.DistanceToNearest(ctx, pos, setName)
	if err != nil {
		return false, err
	}

	set := a.sets[setName]

	return distance <= set.BufferMeters, nil
}

// DistanceToNearest returns the distance in meters from pos to the closest
// geometry of the set. It is 0 inside polygons and +Inf for an empty set.
func (a *Atlas) DistanceToNearest(ctx context.Context, pos vessel.Position, setName string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	set, ok := a.sets[setName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSet, setName)
	}

	point := orb.Point{pos.Longitude, pos.Latitude}
	nearest := math.Inf(1)

	for _, geometry := range set.Geometries {
		nearest = math.Min(nearest, distanceTo(point, geometry))
		if nearest == 0 {
			break
		}
	}

	return nearest, nil
}
