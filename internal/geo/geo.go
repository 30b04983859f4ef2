package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/routekit/editor/v2/pkg/core"
)

// Distances used for display and hit-testing are computed in
// geographic space, not pixel space. Segment projection math treats
// (lat,lng) as planar coordinates, which holds at city scale; its
// results are only ever compared against each other, never reported as
// meters.

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371000.0

// ErrInvalidCoordinates is returned when coordinates cannot be parsed
// or lie outside the WGS84 domain.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Haversine returns the great-circle distance between a and b in
// meters.
func Haversine(a, b core.GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// PlanarDistance returns the Euclidean distance between p and q in
// degree space.
func PlanarDistance(p, q core.GeoPoint) float64 {
	dLat := p.Lat - q.Lat
	dLng := p.Lng - q.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// PointToSegment returns the degree-space distance from p to the
// segment a-b. The projection parameter is clamped to [0,1], so points
// beyond either endpoint measure to that endpoint.
func PointToSegment(p, a, b core.GeoPoint) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng

	lenSq := dLat*dLat + dLng*dLng
	if lenSq == 0 {
		// degenerate segment
		return PlanarDistance(p, a)
	}

	t := ((p.Lat-a.Lat)*dLat + (p.Lng-a.Lng)*dLng) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return PlanarDistance(p, core.GeoPoint{Lat: a.Lat + t*dLat, Lng: a.Lng + t*dLng})
}

// NearestInsertionIndex returns the index at which p should be spliced
// into points so it lands between the endpoints of the closest segment.
// Only a strictly smaller distance replaces the running minimum, so
// equidistant segments resolve to the earlier one. With fewer than two
// points the result is len(points): treat as append.
func NearestInsertionIndex(points []core.GeoPoint, p core.GeoPoint) int {
	if len(points) < 2 {
		return len(points)
	}

	best := 1
	bestDist := math.Inf(1)
	for i := 0; i < len(points)-1; i++ {
		d := PointToSegment(p, points[i], points[i+1])
		if d < bestDist {
			bestDist = d
			best = i + 1
		}
	}
	return best
}

// NearestPointIndex returns the index of the point closest to p by
// great-circle distance, and that distance in meters. Returns -1 when
// points is empty. Delete-mode taps use this with a hit radius.
func NearestPointIndex(points []core.GeoPoint, p core.GeoPoint) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, q := range points {
		if d := Haversine(p, q); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, bestDist
}

// CumulativeDistances returns the running great-circle total at every
// point in meters. The first entry is always 0 and the series never
// decreases.
func CumulativeDistances(points []core.GeoPoint) []float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		out[i] = out[i-1] + Haversine(points[i-1], points[i])
	}
	return out
}

// RouteDistance returns the total great-circle length of the path in
// meters.
func RouteDistance(points []core.GeoPoint) float64 {
	var total float64
	for i := 0; i < len(points)-1; i++ {
		total += Haversine(points[i], points[i+1])
	}
	return total
}

// IsValid reports whether p lies within the WGS84 coordinate domain.
func IsValid(p core.GeoPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// PointFromString parses a "lat,lng" or "lat,lng,accuracy" string into
// a GeoPoint.
func PointFromString(coords string) (core.GeoPoint, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	p := core.GeoPoint{Lat: lat, Lng: lng}
	if len(parts) > 2 {
		acc, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return core.GeoPoint{}, ErrInvalidCoordinates
		}
		p.Accuracy = acc
	}
	if !IsValid(p) {
		return core.GeoPoint{}, ErrInvalidCoordinates
	}
	return p, nil
}
