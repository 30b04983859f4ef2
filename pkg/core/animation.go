// pkg/core/animation.go
package core

// AnimationStyle selects how a finalized route's reveal is animated.
type AnimationStyle uint8

const (
	// StyleDraw reveals points one at a time at a fixed interval.
	StyleDraw AnimationStyle = iota
	// StylePulse widens and opacifies the full path three times.
	StylePulse
	// StyleFlash toggles the full path between two opacities five times.
	StyleFlash
)

// String returns the wire name of the style.
func (s AnimationStyle) String() string {
	switch s {
	case StyleDraw:
		return "draw"
	case StylePulse:
		return "pulse"
	case StyleFlash:
		return "flash"
	default:
		return "unknown"
	}
}

// ParseAnimationStyle maps a wire name back to a style.
func ParseAnimationStyle(s string) (AnimationStyle, error) {
	switch s {
	case "draw":
		return StyleDraw, nil
	case "pulse":
		return StylePulse, nil
	case "flash":
		return StyleFlash, nil
	default:
		return StyleDraw, NewUserInputError("unknown animation style %q", s)
	}
}
