package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Boundary is a parsed region boundary: the geometries extracted from a
// GeoJSON document. Geometry kinds the matcher does not understand are
// kept but never match.
type Boundary struct {
	geometries []orb.Geometry
}

// ParseBoundary parses a GeoJSON FeatureCollection, Feature or bare
// Geometry into a Boundary. A malformed document is an error; the caller
// is expected to log it and skip the region, not abort the run.
func ParseBoundary(raw json.RawMessage) (*Boundary, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse boundary: %w", err)
	}

	var geometries []orb.Geometry
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature collection: %w", err)
		}
		for _, feature := range fc.Features {
			if feature.Geometry != nil {
				geometries = append(geometries, feature.Geometry)
			}
		}
	case "Feature":
		feature, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature: %w", err)
		}
		if feature.Geometry != nil {
			geometries = append(geometries, feature.Geometry)
		}
	default:
		geometry, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse geometry: %w", err)
		}
		geometries = append(geometries, geometry.Geometry())
	}

	return &Boundary{geometries: geometries}, nil
}

// Contains reports whether the point is inside at least one of the
// boundary's polygons or multi-polygons, or lies on one of its line
// strings. Points on a polygon ring count as inside.
func (b *Boundary) Contains(lat, lon float64) bool {
	point := orb.Point{lon, lat}
	for _, geometry := range b.geometries {
		switch g := geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, point) {
				return true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, point) {
				return true
			}
		case orb.LineString:
			if lineStringContains(g, point) {
				return true
			}
		}
	}
	return false
}

const collinearEpsilon = 1e-9

// lineStringContains reports whether the point lies on any segment of
// the line string.
func lineStringContains(line orb.LineString, point orb.Point) bool {
	for i := 0; i+1 < len(line); i++ {
		if pointOnSegment(line[i], line[i+1], point) {
			return true
		}
	}
	return false
}

func pointOnSegment(a, b, p orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if math.Abs(cross) > collinearEpsilon {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-collinearEpsilon &&
		p[0] <= math.Max(a[0], b[0])+collinearEpsilon &&
		p[1] >= math.Min(a[1], b[1])-collinearEpsilon &&
		p[1] <= math.Max(a[1], b[1])+collinearEpsilon
}
