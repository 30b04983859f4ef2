package v1

import (
	"time"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/pkg/core"
)

// RouteData contains all the data needed to build an export
type RouteData struct {
	Meta   core.RouteMeta
	Points []core.GeoPoint
}

// Build creates a FeatureCollection from the route data: one LineString
// feature carrying the full track, plus Point features marking the
// start and end vertices. Per-point timestamps ride along in the
// coordTimes property, cumulative distances in cumulativeM.
func Build(data *RouteData) Export {
	export := Export{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, 3),
	}

	if len(data.Points) >= 2 {
		coords := make([][]float64, len(data.Points))
		for i, p := range data.Points {
			coords[i] = lngLat(p)
		}

		export.Features = append(export.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: map[string]any{
				"name":        data.Meta.Name,
				"description": data.Meta.Description,
				"tag":         data.Meta.Tag,
				"pointCount":  len(data.Points),
				"distanceM":   geo.RouteDistance(data.Points),
				"cumulativeM": geo.CumulativeDistances(data.Points),
				"coordTimes":  coordTimes(data.Points),
			},
		})
	}

	if len(data.Points) >= 1 {
		export.Features = append(export.Features, pointFeature(data.Points[0], "start", data.Meta.Name))
	}
	if len(data.Points) >= 2 {
		export.Features = append(export.Features, pointFeature(data.Points[len(data.Points)-1], "end", data.Meta.Name))
	}

	return export
}

// pointFeature builds a Point feature for a route endpoint
func pointFeature(p core.GeoPoint, kind, routeName string) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: lngLat(p),
		},
		Properties: map[string]any{
			"kind":  kind,
			"route": routeName,
		},
	}
}

// coordTimes returns RFC3339 timestamps aligned with the coordinate
// array, null for unstamped points. This mirrors the coordTimes
// convention GPX converters use.
func coordTimes(points []core.GeoPoint) []any {
	times := make([]any, len(points))
	for i, p := range points {
		if p.Timestamp != 0 {
			times[i] = time.UnixMilli(p.Timestamp).UTC().Format(time.RFC3339)
		}
	}
	return times
}

func lngLat(p core.GeoPoint) []float64 {
	return []float64{p.Lng, p.Lat}
}
