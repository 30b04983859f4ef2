// pkg/core/mode.go
package core

// EditingMode is the single global mode deciding what a crosshair or
// map-tap gesture does. Cycling through modes is an explicit user
// action, never derived from a gesture.
type EditingMode uint8

const (
	ModeAdd EditingMode = iota
	ModeAddOnRoute
	ModeDelete
	ModeRoundTrip

	modeCount
)

// String returns the wire name of the mode.
func (m EditingMode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeAddOnRoute:
		return "add_on_route"
	case ModeDelete:
		return "delete"
	case ModeRoundTrip:
		return "round_trip"
	default:
		return "unknown"
	}
}

// Cycle advances to the next mode, wrapping after ModeRoundTrip.
func (m EditingMode) Cycle() EditingMode {
	return (m + 1) % modeCount
}

// ParseEditingMode maps a wire name back to a mode.
func ParseEditingMode(s string) (EditingMode, error) {
	switch s {
	case "add":
		return ModeAdd, nil
	case "add_on_route":
		return ModeAddOnRoute, nil
	case "delete":
		return ModeDelete, nil
	case "round_trip":
		return ModeRoundTrip, nil
	default:
		return ModeAdd, NewUserInputError("unknown editing mode %q", s)
	}
}
