package geofence

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// distanceTo returns the distance in meters from point to geometry.
func distanceTo(point orb.Point, geometry orb.Geometry) float64 {
	switch g := geometry.(type) {
	case orb.Point:
		return geo.DistanceHaversine(point, g)
	case orb.MultiPoint:
		nearest := math.Inf(1)
		for _, p := range g {
			nearest = math.Min(nearest, geo.DistanceHaversine(point, p))
		}

		return nearest
	case orb.LineString:
		return distanceToPath(point, g)
	case orb.MultiLineString:
		nearest := math.Inf(1)
		for _, line := range g {
			nearest = math.Min(nearest, distanceToPath(point, line))
		}

		return nearest
	case orb.Ring:
		return distanceToPolygon(point, orb.Polygon{g})
	case orb.Polygon:
		return distanceToPolygon(point, g)
	case orb.MultiPolygon:
		nearest := math.Inf(1)
		for _, polygon := range g {
			nearest = math.Min(nearest, distanceToPolygon(point, polygon))
		}

		return nearest
	case orb.Bound:
		return distanceToPolygon(point, g.ToPolygon())
	case orb.Collection:
		nearest := math.Inf(1)
		for _, member := range g {
			nearest = math.Min(nearest, distanceTo(point, member))
		}

		return nearest
	default:
		return math.Inf(1)
	}
}

func distanceToPolygon(point orb.Point, polygon orb.Polygon) float64 {
	if len(polygon) == 0 {
		return math.Inf(1)
	}

	if planar.PolygonContains(polygon, point) {
		return 0
	}

	nearest := math.Inf(1)
	for _, ring := range polygon {
		nearest = math.Min(nearest, distanceToPath(point, orb.LineString(ring)))
	}

	return nearest
}

// distanceToPath measures against each segment in a local equirectangular
// projection centered on point. Accurate for the few kilometers the rules
// care about.
func distanceToPath(point orb.Point, path orb.LineString) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return geo.DistanceHaversine(point, path[0])
	}

	nearest := math.Inf(1)
	for i := 1; i < len(path); i++ {
		a := project(point, path[i-1])
		b := project(point, path[i])
		nearest = math.Min(nearest, planar.DistanceFromSegment(a, b, orb.Point{}))
	}

	return nearest
}

// project maps p to meters east/north of origin.
func project(origin, p orb.Point) orb.Point {
	const radiansPerDegree = math.Pi / 180

	deltaLon := p.Lon() - origin.Lon()
	switch {
	case deltaLon > 180:
		deltaLon -= 360
	case deltaLon < -180:
		deltaLon += 360
	}

	scale := orb.EarthRadius * radiansPerDegree

	return orb.Point{
		deltaLon * scale * math.Cos(origin.Lat()*radiansPerDegree),
		(p.Lat() - origin.Lat()) * scale,
	}
}
