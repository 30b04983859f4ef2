// pkg/core/undo.go
package core

// UndoCapacity is the number of route snapshots the undo stack retains.
const UndoCapacity = 10

// UndoStack is a bounded stack of deep-copied route snapshots,
// most-recent-last. Push evicts the oldest snapshot when full. Popping
// hands the snapshot back for a wholesale route replacement.
type UndoStack struct {
	snapshots [][]GeoPoint
	capacity  int
}

// NewUndoStack returns an empty stack with the default capacity.
func NewUndoStack() *UndoStack {
	return &UndoStack{capacity: UndoCapacity}
}

// Push records a deep copy of the route's current points.
func (s *UndoStack) Push(r *Route) {
	snap := r.Points()
	if len(s.snapshots) >= s.capacity {
		s.snapshots = s.snapshots[1:]
	}
	s.snapshots = append(s.snapshots, snap)
}

// Pop removes and returns the most recent snapshot, reporting ok=false
// when the stack is empty.
func (s *UndoStack) Pop() ([]GeoPoint, bool) {
	if len(s.snapshots) == 0 {
		return nil, false
	}
	last := len(s.snapshots) - 1
	snap := s.snapshots[last]
	s.snapshots = s.snapshots[:last]
	return snap, true
}

// Len returns the number of stored snapshots.
func (s *UndoStack) Len() int {
	return len(s.snapshots)
}

// Clear drops every snapshot. Session cancel and successful commits
// clear the stack.
func (s *UndoStack) Clear() {
	s.snapshots = nil
}
