package parser

import (
	"fmt"
	"strconv"

	"github.com/routekit/editor/v2/internal/util"
	"github.com/routekit/editor/v2/pkg/surface"
)

// ParsePointerDown parses pointer press data: [target, id, x, y, button, timeMs]
func (p *Parser) ParsePointerDown(data []string) (ParsedPointer, error) {
	var result ParsedPointer

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 6 {
		return result, fmt.Errorf("pointer down expects 6 args, got %d", len(data))
	}

	target, err := parseTarget(data[0])
	if err != nil {
		return result, err
	}
	result.Event.Target = target

	id, err := parseUintFromFloat(data[1])
	if err != nil {
		return result, fmt.Errorf("error parsing point id: %w", err)
	}
	result.Event.PointID = uint(id)

	if err := parseXY(data[2], data[3], &result.Event); err != nil {
		return result, err
	}

	result.Event.Button = p.parseButton(data[4])

	timeMs, err := parseIntFromFloat(data[5])
	if err != nil {
		p.logger.Warn("Error parsing event time", "error", err)
		timeMs = 0
	}
	result.TimeMs = timeMs

	return result, nil
}

// ParsePointerMove parses pointer move data: [target, id, x, y, timeMs]
func (p *Parser) ParsePointerMove(data []string) (ParsedPointer, error) {
	return p.parsePointerSample(data, "pointer move")
}

// ParsePointerUp parses pointer release data: [target, id, x, y, timeMs]
func (p *Parser) ParsePointerUp(data []string) (ParsedPointer, error) {
	return p.parsePointerSample(data, "pointer up")
}

func (p *Parser) parsePointerSample(data []string, what string) (ParsedPointer, error) {
	var result ParsedPointer

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 5 {
		return result, fmt.Errorf("%s expects 5 args, got %d", what, len(data))
	}

	target, err := parseTarget(data[0])
	if err != nil {
		return result, err
	}
	result.Event.Target = target

	id, err := parseUintFromFloat(data[1])
	if err != nil {
		return result, fmt.Errorf("error parsing point id: %w", err)
	}
	result.Event.PointID = uint(id)

	if err := parseXY(data[2], data[3], &result.Event); err != nil {
		return result, err
	}

	timeMs, err := parseIntFromFloat(data[4])
	if err != nil {
		p.logger.Warn("Error parsing event time", "error", err)
		timeMs = 0
	}
	result.TimeMs = timeMs

	return result, nil
}

// ParseMarkerID parses a bare marker id argument, as sent by
// :MARKER:DBLCLICK: and :MARKER:RIGHTCLICK:
func (p *Parser) ParseMarkerID(data []string) (uint, error) {
	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 1 {
		return 0, fmt.Errorf("marker command expects an id arg")
	}
	id, err := parseUintFromFloat(data[0])
	if err != nil {
		return 0, fmt.Errorf("error parsing marker id: %w", err)
	}
	return uint(id), nil
}

func parseXY(xs, ys string, ev *surface.PointerEvent) error {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return fmt.Errorf("error parsing pointer x: %w", err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return fmt.Errorf("error parsing pointer y: %w", err)
	}
	ev.X = x
	ev.Y = y
	return nil
}

func parseTarget(s string) (surface.TargetKind, error) {
	switch s {
	case "map":
		return surface.TargetMap, nil
	case "point":
		return surface.TargetPoint, nil
	case "segment":
		return surface.TargetSegment, nil
	default:
		return surface.TargetMap, fmt.Errorf("unknown pointer target %q", s)
	}
}

// parseButton maps both named and JS MouseEvent numeric buttons.
// Anything unrecognized is treated as primary.
func (p *Parser) parseButton(s string) surface.Button {
	switch s {
	case "primary", "0":
		return surface.ButtonPrimary
	case "secondary", "2":
		return surface.ButtonSecondary
	default:
		p.logger.Warn("Unknown pointer button, assuming primary", "button", s)
		return surface.ButtonPrimary
	}
}
