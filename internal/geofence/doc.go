// Package geofence answers containment and distance queries against named
// sets of GeoJSON geometries.
//
// An Atlas holds the sets used by the alarm rules: "border" (zones inside
// which vessels are expected to go silent) and "infrastructure" (pipelines
// and cables). Containment in a buffered zone is answered as "distance to
// the zone is within the buffer", which is equivalent to containment in the
// buffered polygon without building it.
package geofence
