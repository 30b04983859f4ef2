package gesture

import (
	"log/slog"
	"math"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/surface"
)

// Machine owns the press session and the two disambiguation timers.
// Pointer events, background clicks, and timer expirations all funnel
// through it; whichever arrives first resolves the press and cancels
// the rest, so a single physical gesture can never produce two
// actions.
type Machine struct {
	cfg     config.GestureConfig
	clock   clock.Clock
	actions Actions
	surface surface.Surface
	logger  *slog.Logger

	mu         sync.Mutex
	session    *session
	generation uint64
	guard      dragGuard
}

// New builds a gesture machine. A nil clk selects the wall clock.
func New(cfg config.GestureConfig, actions Actions, surf surface.Surface, logger *slog.Logger, clk clock.Clock) *Machine {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		cfg:     cfg,
		clock:   clk,
		actions: actions,
		surface: surf,
		logger:  logger,
	}
}

// PointerDown opens a press session on a point. A secondary-button
// press deletes the point immediately, skipping the timers. Presses
// on anything but a point are left to the map.
func (m *Machine) PointerDown(ev surface.PointerEvent) {
	if ev.Target != surface.TargetPoint {
		return
	}
	if ev.Button == surface.ButtonSecondary {
		m.RightClick(ev.PointID)
		return
	}

	m.mu.Lock()
	m.teardownLocked()
	m.generation++
	s := &session{
		id:         ev.PointID,
		generation: m.generation,
		state:      StatePressed,
		originX:    ev.X,
		originY:    ev.Y,
	}
	gen := s.generation
	s.dragArm = m.clock.AfterFunc(m.cfg.DragArm, func() { m.arm(gen) })
	m.session = s
	m.mu.Unlock()
}

// arm fires when the press outlives the drag-arm window: the point
// becomes draggable, the map stops panning, and the delete timer
// starts.
func (m *Machine) arm(gen uint64) {
	m.mu.Lock()
	s := m.session
	if s == nil || s.generation != gen || s.state != StatePressed {
		// The press resolved while this callback was in flight.
		m.mu.Unlock()
		return
	}
	s.state = StateArmed
	s.dragArm = nil
	s.deleteArm = m.clock.AfterFunc(m.cfg.DeleteArm, func() { m.expire(gen) })
	id := s.id
	m.surface.SetPanEnabled(false)
	m.actions.SetMarkerArmed(id, true)
	m.mu.Unlock()
	m.logger.Debug("press armed", "point", id)
}

// expire fires when an armed press is held, unmoved, through the
// delete window.
func (m *Machine) expire(gen uint64) {
	m.mu.Lock()
	s := m.session
	if s == nil || s.generation != gen || s.state != StateArmed {
		// Stale expiry: a drag or release won the race.
		m.mu.Unlock()
		return
	}
	s.stopTimers()
	m.session = nil
	id := s.id
	m.surface.SetPanEnabled(true)
	m.mu.Unlock()
	m.logger.Debug("long press delete", "point", id)
	m.actions.DeletePoint(id)
}

// PointerMove feeds pointer motion into the live session. Before the
// arm window it does nothing. While armed, motion past the threshold
// starts a drag and cancels the delete timer; jitter under the
// threshold leaves the delete timer running, since the threshold is
// what separates a held finger from an intentional drag. While
// dragging, every move repositions the point.
func (m *Machine) PointerMove(ev surface.PointerEvent) {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return
	}
	switch s.state {
	case StateArmed:
		if !m.pastThreshold(s, ev) {
			m.mu.Unlock()
			return
		}
		if s.deleteArm != nil {
			s.deleteArm.Stop()
			s.deleteArm = nil
		}
		s.state = StateDragging
		id := s.id
		m.mu.Unlock()
		m.logger.Debug("drag start", "point", id)
		m.actions.DragPoint(id, m.surface.Unproject(ev.X, ev.Y))
	case StateDragging:
		id := s.id
		m.mu.Unlock()
		m.actions.DragPoint(id, m.surface.Unproject(ev.X, ev.Y))
	default:
		m.mu.Unlock()
	}
}

// PointerUp resolves the live session. Release before the arm window
// is a click; release from a drag commits the final position and
// opens the tap guard; release while armed but unmoved resolves to
// nothing at all.
func (m *Machine) PointerUp(ev surface.PointerEvent) {
	m.mu.Lock()
	s := m.session
	if s == nil {
		m.mu.Unlock()
		return
	}
	s.stopTimers()
	m.session = nil
	id := s.id
	switch s.state {
	case StatePressed:
		m.mu.Unlock()
		m.actions.ClickPoint(id)
	case StateArmed:
		m.surface.SetPanEnabled(true)
		m.actions.SetMarkerArmed(id, false)
		m.mu.Unlock()
	case StateDragging:
		m.guard.extend(m.clock.Now(), m.cfg.DragRelease)
		m.surface.SetPanEnabled(true)
		m.actions.SetMarkerArmed(id, false)
		m.mu.Unlock()
		m.actions.EndDrag(id, m.surface.Unproject(ev.X, ev.Y))
	default:
		m.mu.Unlock()
	}
}

// RightClick deletes the point immediately, bypassing the long-press
// timers.
func (m *Machine) RightClick(id uint) {
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()
	m.actions.DeletePoint(id)
}

// DoubleClick resolves to a round trip from the point, regardless of
// editing mode. Whatever session the first click left behind is
// discarded.
func (m *Machine) DoubleClick(id uint) {
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()
	m.actions.RoundTrip(id)
}

// MapClick reports a click on the map background. Suppressed while a
// drag is live and for the release window after one ends.
func (m *Machine) MapClick(x, y float64) {
	if m.suppressTap() {
		return
	}
	m.actions.TapMap(m.surface.Unproject(x, y))
}

// RouteClick reports a click on the route line between points, under
// the same guard as MapClick.
func (m *Machine) RouteClick(x, y float64) {
	if m.suppressTap() {
		return
	}
	m.actions.TapRoute(m.surface.Unproject(x, y))
}

// MapClickPoint is MapClick for hosts that report clicks in
// geographic coordinates rather than view pixels.
func (m *Machine) MapClickPoint(p core.GeoPoint) {
	if m.suppressTap() {
		return
	}
	m.actions.TapMap(p)
}

// RouteClickPoint is RouteClick in geographic coordinates.
func (m *Machine) RouteClickPoint(p core.GeoPoint) {
	if m.suppressTap() {
		return
	}
	m.actions.TapRoute(p)
}

// Cancel drops any live press without resolving it. The host calls
// this when the pointer leaves the surface or the editing session
// resets.
func (m *Machine) Cancel() {
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()
}

// State reports the live session's state, or StateIdle when none.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return StateIdle
	}
	return m.session.state
}

// teardownLocked ends the live session, restoring pan and the marker
// style if the press had armed.
func (m *Machine) teardownLocked() {
	s := m.session
	if s == nil {
		return
	}
	s.stopTimers()
	m.session = nil
	if s.state == StateArmed || s.state == StateDragging {
		m.surface.SetPanEnabled(true)
		m.actions.SetMarkerArmed(s.id, false)
	}
}

func (m *Machine) suppressTap() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.session.state == StateDragging {
		return true
	}
	return m.guard.active(m.clock.Now())
}

func (m *Machine) pastThreshold(s *session, ev surface.PointerEvent) bool {
	return math.Hypot(ev.X-s.originX, ev.Y-s.originY) >= m.cfg.MoveThresholdPx
}
