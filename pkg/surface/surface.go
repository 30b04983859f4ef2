// Package surface is the boundary between the editing engine and the
// host map it draws on. Hosts implement Surface and Emitter; commands
// flow in through the bridge entry points and envelopes flow back out.
package surface

import (
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
)

// Button identifies which pointer button an event came from.
type Button uint8

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// TargetKind says what the pointer was over when the event fired.
type TargetKind uint8

const (
	TargetMap TargetKind = iota
	TargetPoint
	TargetSegment
)

// PointerEvent is a raw pointer sample forwarded by the host.
type PointerEvent struct {
	X       float64
	Y       float64
	Button  Button
	Target  TargetKind
	PointID uint // marker ID when Target is TargetPoint
}

// Surface is the host map view the engine edits against.
type Surface interface {
	// Unproject converts view pixels to geographic coordinates.
	Unproject(x, y float64) core.GeoPoint
	// Project converts geographic coordinates to view pixels.
	Project(p core.GeoPoint) (x, y float64)
	// Zoom returns the current zoom level.
	Zoom() float64
	// SetPanEnabled toggles map panning. The engine disables panning
	// while a point drag is active.
	SetPanEnabled(enabled bool)
}

// Emitter receives outbound envelopes for rendering.
type Emitter interface {
	Emit(e streaming.Envelope)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(e streaming.Envelope)

func (f EmitterFunc) Emit(e streaming.Envelope) {
	f(e)
}
