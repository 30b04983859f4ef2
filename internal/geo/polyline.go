package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/routekit/editor/v2/pkg/core"
)

// ParsePointsJSON parses a JSON array of [lat,lng] or [lat,lng,accuracy]
// coordinates into GeoPoints. This is the load format hosts send over
// the bridge.
func ParsePointsJSON(input string) ([]core.GeoPoint, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse points JSON: %w", err)
	}

	points := make([]core.GeoPoint, 0, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		p := core.GeoPoint{Lat: coord[0], Lng: coord[1]}
		if len(coord) > 2 {
			p.Accuracy = coord[2]
		}
		if !IsValid(p) {
			return nil, fmt.Errorf("coordinate %d: %w", i, ErrInvalidCoordinates)
		}
		points = append(points, p)
	}
	return points, nil
}

// LineString builds a simplefeatures LineString from the route's
// points, in (lng,lat) axis order as geometry columns expect.
func LineString(points []core.GeoPoint) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("linestring needs at least 2 points, got %d", len(points))
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lng, p.Lat)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// EncodePolyline encodes points with the Google polyline algorithm at
// 1e-5 precision. Stored route records keep their geometry in this
// form.
func EncodePolyline(points []core.GeoPoint) string {
	var sb strings.Builder
	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * 1e5))
		lng := int64(math.Round(p.Lng * 1e5))
		encodePolylineValue(&sb, lat-prevLat)
		encodePolylineValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

func encodePolylineValue(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

// DecodePolyline decodes a Google-encoded polyline back into
// GeoPoints. Timestamps and accuracy are zero; the caller restamps if
// the points enter an editing session.
func DecodePolyline(encoded string) ([]core.GeoPoint, error) {
	var points []core.GeoPoint
	var lat, lng int64
	i := 0
	for i < len(encoded) {
		dLat, n, err := decodePolylineValue(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n
		dLng, n, err := decodePolylineValue(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lng += dLng
		points = append(points, core.GeoPoint{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}
	return points, nil
}

func decodePolylineValue(s string) (int64, int, error) {
	var u int64
	var shift uint
	for i := 0; i < len(s); i++ {
		b := int64(s[i]) - 63
		if b < 0 {
			return 0, 0, fmt.Errorf("invalid polyline byte at offset %d", i)
		}
		u |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			v := u >> 1
			if u&1 == 1 {
				v = ^v
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated polyline value")
}
