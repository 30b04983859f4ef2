package gesture

import (
	"time"

	"github.com/benbjohnson/clock"
)

// session tracks one press from pointer-down to its resolution. The
// machine owns at most one live session; a new press replaces it and
// bumps the generation so callbacks from the old session's timers
// resolve as stale instead of acting on the new press.
type session struct {
	id         uint
	generation uint64
	state      State

	// originX and originY are the surface pixel coordinates at
	// pointer-down. The move threshold is measured from here, not
	// from the previous move event.
	originX float64
	originY float64

	dragArm   *clock.Timer
	deleteArm *clock.Timer
}

// stopTimers cancels whichever disambiguation timers are still
// pending. Safe to call repeatedly.
func (s *session) stopTimers() {
	if s.dragArm != nil {
		s.dragArm.Stop()
		s.dragArm = nil
	}
	if s.deleteArm != nil {
		s.deleteArm.Stop()
		s.deleteArm = nil
	}
}

// dragGuard suppresses background taps while a drag is in flight and
// for a short window after it ends, so the release that finishes a
// drag cannot double as a map click that appends a point.
type dragGuard struct {
	until time.Time
}

func (g *dragGuard) extend(now time.Time, d time.Duration) {
	g.until = now.Add(d)
}

func (g *dragGuard) active(now time.Time) bool {
	return now.Before(g.until)
}
