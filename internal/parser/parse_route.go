package parser

import (
	"fmt"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/util"
	"github.com/routekit/editor/v2/pkg/core"
)

// ParseRouteLoad parses a pushed route: [name, description, encodedPolyline].
// The host sends the stored geometry itself; nothing is read from storage.
func (p *Parser) ParseRouteLoad(data []string) (core.RouteMeta, []core.GeoPoint, error) {
	var meta core.RouteMeta

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 3 {
		return meta, nil, fmt.Errorf("route load expects 3 args, got %d", len(data))
	}

	meta.Name = data[0]
	meta.Description = data[1]

	points, err := geo.DecodePolyline(data[2])
	if err != nil {
		return meta, nil, fmt.Errorf("error decoding route polyline: %w", err)
	}

	p.logger.Debug("Parsed route load", "name", meta.Name, "points", len(points))
	return meta, points, nil
}

// ParseRouteCommit parses a commit request: [name, description]
func (p *Parser) ParseRouteCommit(data []string) (CommitArgs, error) {
	var args CommitArgs

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 2 {
		return args, fmt.Errorf("route commit expects 2 args, got %d", len(data))
	}

	args.Name = data[0]
	args.Description = data[1]
	return args, nil
}
