package parser

import (
	"github.com/routekit/editor/v2/pkg/surface"
)

// ParsedPointer holds a pointer event plus the host-side timestamp.
// The gesture machine keys off its own clock; the worker layer uses
// TimeMs for bridge-latency telemetry.
type ParsedPointer struct {
	Event  surface.PointerEvent
	TimeMs int64
}

// CommitArgs holds the route identity a commit was submitted with.
// Empty fields fall back to the session's values in the editor layer.
type CommitArgs struct {
	Name        string
	Description string
}
