package convert

import (
	"encoding/json"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/model"
	"github.com/routekit/editor/v2/pkg/core"
)

// latLngToPoint builds a geometry column point in (lng, lat) axis order.
func latLngToPoint(lat, lng float64) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: lng, Y: lat}}
	return geom.NewPoint(coords)
}

// boundsJSON computes the [minLat, minLng, maxLat, maxLng] bounding box
// as datatypes.JSON for DB storage.
func boundsJSON(points []core.GeoPoint) datatypes.JSON {
	if len(points) == 0 {
		return datatypes.JSON("[]")
	}
	minLat, minLng := points[0].Lat, points[0].Lng
	maxLat, maxLng := points[0].Lat, points[0].Lng
	for _, p := range points[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lng < minLng {
			minLng = p.Lng
		}
		if p.Lng > maxLng {
			maxLng = p.Lng
		}
	}
	data, _ := json.Marshal([]float64{minLat, minLng, maxLat, maxLng})
	return datatypes.JSON(data)
}

// pointTime maps a point's millisecond timestamp to a column value,
// keeping unstamped points at the zero time.
func pointTime(p core.GeoPoint) time.Time {
	if p.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.Timestamp)
}

// CoreToRouteRecord builds the full record set for a commit: the route
// row, vertex rows with cumulative distances, the encoded polyline, and
// the linestring geometry. meta.ID carries through so saving an
// existing route updates it in place.
func CoreToRouteRecord(meta core.RouteMeta, points []core.GeoPoint, startedAt time.Time) model.RouteRecord {
	cum := geo.CumulativeDistances(points)
	recs := make([]model.RoutePointRecord, len(points))
	for i, p := range points {
		recs[i] = model.RoutePointRecord{
			Seq:         i,
			Time:        pointTime(p),
			Position:    latLngToPoint(p.Lat, p.Lng),
			Accuracy:    float32(p.Accuracy),
			CumulativeM: cum[i],
		}
	}

	rec := model.RouteRecord{
		Name:        meta.Name,
		Description: meta.Description,
		Tag:         meta.Tag,
		StartedAt:   startedAt,
		DistanceM:   geo.RouteDistance(points),
		PointCount:  len(points),
		Polyline:    geo.EncodePolyline(points),
		Bounds:      boundsJSON(points),
		Points:      recs,
	}
	rec.ID = meta.ID
	if ls, err := geo.LineString(points); err == nil {
		rec.Line = ls
	}
	return rec
}
