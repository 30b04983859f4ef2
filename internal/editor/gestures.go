package editor

import (
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
)

// Gestures adapts the service to the gesture machine's action
// callbacks. The machine addresses points by stable marker ID; this
// layer resolves IDs to current indices at dispatch time. An ID that
// no longer resolves belongs to a point edited away while the gesture
// was in flight, and the callback is dropped without comment.
type Gestures struct {
	s *Service
}

// Gestures returns the adapter the gesture machine drives.
func (s *Service) Gestures() *Gestures {
	return &Gestures{s: s}
}

// ClickPoint applies the current editing mode to a marker tap. The add
// modes ignore marker taps; only the map takes new points.
func (g *Gestures) ClickPoint(id uint) {
	index, ok := g.s.deps.Registry.IndexOf(id)
	if !ok {
		return
	}
	switch g.s.deps.Session.GetMode() {
	case core.ModeDelete:
		g.s.mu.Lock()
		g.s.deleteLocked(index)
		g.s.mu.Unlock()
	case core.ModeRoundTrip:
		g.s.mu.Lock()
		err := g.s.roundTripLocked(index)
		g.s.mu.Unlock()
		g.s.reportUserError(err)
	}
}

func (g *Gestures) DragPoint(id uint, p core.GeoPoint) {
	index, ok := g.s.deps.Registry.IndexOf(id)
	if !ok {
		return
	}
	g.s.mu.Lock()
	g.s.moveLocked(index, p.Lat, p.Lng)
	g.s.mu.Unlock()
}

func (g *Gestures) EndDrag(id uint, p core.GeoPoint) {
	index, ok := g.s.deps.Registry.IndexOf(id)
	if !ok {
		return
	}
	g.s.mu.Lock()
	g.s.moveLocked(index, p.Lat, p.Lng)
	g.s.mu.Unlock()
	g.s.logger.Debug("drag finished", "id", id, "index", index)
}

func (g *Gestures) DeletePoint(id uint) {
	index, ok := g.s.deps.Registry.IndexOf(id)
	if !ok {
		return
	}
	g.s.mu.Lock()
	g.s.deleteLocked(index)
	g.s.mu.Unlock()
}

func (g *Gestures) RoundTrip(id uint) {
	index, ok := g.s.deps.Registry.IndexOf(id)
	if !ok {
		return
	}
	g.s.mu.Lock()
	err := g.s.roundTripLocked(index)
	g.s.mu.Unlock()
	g.s.reportUserError(err)
}

func (g *Gestures) TapMap(p core.GeoPoint) {
	g.s.Tap(p)
}

func (g *Gestures) TapRoute(p core.GeoPoint) {
	g.s.TapRoute(p)
}

func (g *Gestures) SetMarkerArmed(id uint, armed bool) {
	style := "default"
	if armed {
		style = "armed"
	}
	g.s.emit(streaming.TypeMarkerStyle, streaming.MarkerStylePayload{ID: id, Style: style})
}
