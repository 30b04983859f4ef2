// pkg/core/route.go
package core

// Route is an ordered, mutable sequence of GeoPoints. Index 0 is the
// start, the last index is the end; there is no separate endpoint type.
// Points keep insertion order and no operation ever reorders them. A
// Route is exclusively owned by one editing session and is replaced
// wholesale (never partially shared) when loaded from or committed to
// storage.
//
// Structural operations with an out-of-range index are no-ops: gesture
// timer callbacks capture indices by value and may fire after a
// concurrent structural edit shifted them.
type Route struct {
	points  []GeoPoint
	version uint64
	shape   uint64
}

// RouteMeta carries the caller-supplied identity of a route handed to
// the storage collaborator on commit.
type RouteMeta struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
}

// UploadMetadata describes an exported route file for the upload API.
type UploadMetadata struct {
	RouteName string
	Tag       string
	Points    int
	DistanceM float64
}

// NewRoute returns an empty route.
func NewRoute() *Route {
	return &Route{}
}

// NewRouteFrom returns a route initialized with a copy of points.
func NewRouteFrom(points []GeoPoint) *Route {
	r := &Route{points: make([]GeoPoint, len(points))}
	copy(r.points, points)
	return r
}

// Len returns the number of points.
func (r *Route) Len() int {
	return len(r.points)
}

// At returns the point at index i, reporting ok=false when i is out of
// range.
func (r *Route) At(i int) (GeoPoint, bool) {
	if i < 0 || i >= len(r.points) {
		return GeoPoint{}, false
	}
	return r.points[i], true
}

// Points returns a copy of the point sequence.
func (r *Route) Points() []GeoPoint {
	out := make([]GeoPoint, len(r.points))
	copy(out, r.points)
	return out
}

// Append adds p to the end of the route.
func (r *Route) Append(p GeoPoint) {
	r.points = append(r.points, p)
	r.bumpShape()
}

// InsertAt splices p in at index i. Indices outside [0, Len()] clamp to
// the nearest end.
func (r *Route) InsertAt(i int, p GeoPoint) {
	if i < 0 {
		i = 0
	}
	if i > len(r.points) {
		i = len(r.points)
	}
	r.points = append(r.points, GeoPoint{})
	copy(r.points[i+1:], r.points[i:])
	r.points[i] = p
	r.bumpShape()
}

// RemoveAt deletes the point at index i. Out-of-range indices are a
// no-op.
func (r *Route) RemoveAt(i int) {
	if i < 0 || i >= len(r.points) {
		return
	}
	r.points = append(r.points[:i], r.points[i+1:]...)
	r.bumpShape()
}

// ReplaceAt overwrites the point at index i in place. Out-of-range
// indices are a no-op. The shape counter is untouched: coordinate
// updates at a fixed length reuse cached label placements.
func (r *Route) ReplaceAt(i int, p GeoPoint) {
	if i < 0 || i >= len(r.points) {
		return
	}
	r.points[i] = p
	r.version++
}

// Replace swaps the whole point sequence, copying points. Undo and
// load-for-edit restore routes this way.
func (r *Route) Replace(points []GeoPoint) {
	r.points = make([]GeoPoint, len(points))
	copy(r.points, points)
	r.bumpShape()
}

// Clear empties the route.
func (r *Route) Clear() {
	r.points = nil
	r.bumpShape()
}

// Clone returns a deep copy sharing no storage with r. Counters reset:
// a clone starts its own history.
func (r *Route) Clone() *Route {
	return NewRouteFrom(r.points)
}

// Version increments on every mutation, including in-place coordinate
// replacement.
func (r *Route) Version() uint64 {
	return r.version
}

// Shape increments only on structural mutations (append, insert,
// remove, wholesale replace). Derived caches key on it.
func (r *Route) Shape() uint64 {
	return r.shape
}

func (r *Route) bumpShape() {
	r.version++
	r.shape++
}
