// Package convert provides functions to convert between GORM records and core route types
package convert

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/model"
	"github.com/routekit/editor/v2/pkg/core"
)

// pointToLatLng reads a geometry column point back in lat/lng order.
// Geometry columns store (lng, lat).
func pointToLatLng(p geom.Point) (lat, lng float64) {
	coord, ok := p.Coordinates()
	if !ok {
		return 0, 0
	}
	return coord.XY.Y, coord.XY.X
}

// RouteRecordToMeta converts a GORM RouteRecord to a core.RouteMeta.
func RouteRecordToMeta(r model.RouteRecord) core.RouteMeta {
	return core.RouteMeta{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Tag:         r.Tag,
	}
}

// RouteRecordToPoints converts a RouteRecord's vertices back to core
// points. Vertex rows win; a record carrying only the encoded polyline
// is decoded instead, yielding points without timestamps or accuracy.
func RouteRecordToPoints(r model.RouteRecord) []core.GeoPoint {
	if len(r.Points) > 0 {
		points := make([]core.GeoPoint, len(r.Points))
		for i, rec := range r.Points {
			lat, lng := pointToLatLng(rec.Position)
			p := core.GeoPoint{
				Lat:      lat,
				Lng:      lng,
				Accuracy: float64(rec.Accuracy),
			}
			if !rec.Time.IsZero() {
				p.Timestamp = rec.Time.UnixMilli()
			}
			points[i] = p
		}
		return points
	}

	if r.Polyline != "" {
		points, err := geo.DecodePolyline(r.Polyline)
		if err == nil {
			return points
		}
	}
	return nil
}
