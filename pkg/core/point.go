// pkg/core/point.go
package core

import "time"

// GeoPoint is a single geographic sample on a route.
// Accuracy is an opaque precision tag; persisted formats reuse it to
// carry elevation. Timestamp is Unix milliseconds and records insertion
// order only. Duplicate coordinates are legal: round-trip paths revisit
// the same positions.
type GeoPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
}

// NewGeoPoint returns a point at (lat, lng) stamped with the current
// wall clock.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Lat: lat, Lng: lng, Timestamp: time.Now().UnixMilli()}
}

// Restamp returns a copy of p with a freshly generated timestamp.
// Round-trip generation appends restamped copies of existing points.
func (p GeoPoint) Restamp() GeoPoint {
	p.Timestamp = time.Now().UnixMilli()
	return p
}

// SamePlace reports whether p and q share coordinates, ignoring
// accuracy and timestamp.
func (p GeoPoint) SamePlace(q GeoPoint) bool {
	return p.Lat == q.Lat && p.Lng == q.Lng
}
