package geofence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadSet reads every GeoJSON file into one set. A file may hold a
// FeatureCollection, a single Feature or a bare geometry.
func LoadSet(name string, bufferMeters float64, files ...string) (*Set, error) {
	set := NewSet(name, bufferMeters)

	for _, file := range files {
		contents, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return nil, fmt.Errorf("read %s layer %s: %w", name, file, err)
		}

		geometries, err := decodeGeometries(contents)
		if err != nil {
			return nil, fmt.Errorf("decode %s layer %s: %w", name, file, err)
		}

		set.Geometries = append(set.Geometries, geometries...)
	}

	return set, nil
}

func decodeGeometries(contents []byte) ([]orb.Geometry, error) {
	var header struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(contents, &header); err != nil {
		return nil, err
	}

	switch header.Type {
	case "FeatureCollection":
		collection, err := geojson.UnmarshalFeatureCollection(contents)
		if err != nil {
			return nil, err
		}

		geometries := make([]orb.Geometry, 0, len(collection.Features))
		for _, feature := range collection.Features {
			if feature.Geometry != nil {
				geometries = append(geometries, feature.Geometry)
			}
		}

		return geometries, nil
	case "Feature":
		feature, err := geojson.UnmarshalFeature(contents)
		if err != nil {
			return nil, err
		}

		if feature.Geometry == nil {
			return nil, nil
		}

		return []orb.Geometry{feature.Geometry}, nil
	default:
		geometry, err := geojson.UnmarshalGeometry(contents)
		if err != nil {
			return nil, err
		}

		return []orb.Geometry{geometry.Geometry()}, nil
	}
}
