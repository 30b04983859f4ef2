// Package gesture resolves raw pointer events on the map surface into
// exactly one edit action per physical gesture: click, drag,
// long-press delete, or a mode-dependent background tap. All timing
// runs through an injectable clock so the disambiguation windows are
// testable without sleeping.
package gesture

import (
	"github.com/routekit/editor/v2/pkg/core"
)

// State is the machine's position in the disambiguation flow for the
// current press session.
type State uint8

const (
	// StateIdle means no press session is active.
	StateIdle State = iota
	// StatePressed means pointer-down was received and the drag-arm
	// timer is running. Release now resolves as a click.
	StatePressed
	// StateArmed means the drag-arm timer fired: the point is
	// draggable, the delete timer is running, and the marker shows
	// its armed style.
	StateArmed
	// StateDragging means the pointer moved past the threshold while
	// armed. The delete timer is cancelled and the point follows the
	// pointer.
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateArmed:
		return "armed"
	case StateDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Actions is what the machine drives when a gesture resolves. The
// editor implements it. Callbacks run on the goroutine that delivered
// the resolving event or timer and must not call back into the
// Machine.
type Actions interface {
	// ClickPoint fires on release before the drag-arm window closes.
	ClickPoint(id uint)
	// DragPoint fires continuously while dragging.
	DragPoint(id uint, p core.GeoPoint)
	// EndDrag fires on release from a drag with the final position.
	EndDrag(id uint, p core.GeoPoint)
	// DeletePoint fires on long-press expiry or right-click.
	DeletePoint(id uint)
	// RoundTrip fires on double-click, regardless of editing mode.
	RoundTrip(id uint)
	// TapMap fires for an unsuppressed click on the map background.
	TapMap(p core.GeoPoint)
	// TapRoute fires for an unsuppressed click on the route line.
	TapRoute(p core.GeoPoint)
	// SetMarkerArmed toggles the marker's armed visual style.
	SetMarkerArmed(id uint, armed bool)
}
