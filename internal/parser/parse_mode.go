package parser

import (
	"fmt"

	"github.com/routekit/editor/v2/internal/util"
	"github.com/routekit/editor/v2/pkg/core"
)

// ParseModeSet parses an editing mode change: [mode]
func (p *Parser) ParseModeSet(data []string) (core.EditingMode, error) {
	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 1 {
		return core.ModeAdd, fmt.Errorf("mode set expects an arg")
	}
	return core.ParseEditingMode(data[0])
}

// ParseAnimStart parses an animation request: [style]
func (p *Parser) ParseAnimStart(data []string) (core.AnimationStyle, error) {
	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 1 {
		return core.StyleDraw, fmt.Errorf("animation start expects an arg")
	}
	return core.ParseAnimationStyle(data[0])
}
