package cache

import "sync"

// PointRegistry assigns stable IDs to route points for the current
// editing session. An ID follows its point through inserts, moves, and
// deletes of other points, so the host can address rendered markers
// without re-deriving indices after every edit. IDs are never reused
// within a session.
type PointRegistry struct {
	mu     sync.RWMutex
	ids    []uint
	nextID uint
}

// NewPointRegistry creates an empty PointRegistry
func NewPointRegistry() *PointRegistry {
	return &PointRegistry{nextID: 1}
}

// Append assigns an ID to a point added at the end of the route
func (r *PointRegistry) Append() uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.ids = append(r.ids, id)
	return id
}

// InsertAt assigns an ID to a point spliced in at index i. Indices
// outside [0, len] clamp the same way the route does.
func (r *PointRegistry) InsertAt(i int) uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i > len(r.ids) {
		i = len(r.ids)
	}
	id := r.nextID
	r.nextID++
	r.ids = append(r.ids, 0)
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = id
	return id
}

// RemoveAt drops the ID at index i. Out of range is a no-op.
func (r *PointRegistry) RemoveAt(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.ids) {
		return
	}
	r.ids = append(r.ids[:i], r.ids[i+1:]...)
}

// ReplaceAll assigns fresh IDs for a wholesale route replacement of n
// points (undo, load) and returns them in order.
func (r *PointRegistry) ReplaceAll(n int) []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make([]uint, n)
	for i := range r.ids {
		r.ids[i] = r.nextID
		r.nextID++
	}
	out := make([]uint, n)
	copy(out, r.ids)
	return out
}

// IDAt returns the ID of the point at index i
func (r *PointRegistry) IDAt(i int) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.ids) {
		return 0, false
	}
	return r.ids[i], true
}

// IndexOf returns the current index of the point with the given ID
func (r *PointRegistry) IndexOf(id uint) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, v := range r.ids {
		if v == id {
			return i, true
		}
	}
	return 0, false
}

// IDs returns a copy of all IDs in route order
func (r *PointRegistry) IDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of registered points
func (r *PointRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Reset clears all IDs but keeps the counter so a new session never
// collides with IDs the host may still hold
func (r *PointRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = nil
}
