package parser

import (
	"fmt"
	"strconv"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/util"
	"github.com/routekit/editor/v2/pkg/core"
)

// ParseLatLng parses a geographic click: [lat, lng]
func (p *Parser) ParseLatLng(data []string) (core.GeoPoint, error) {
	var point core.GeoPoint

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 2 {
		return point, fmt.Errorf("click expects 2 args, got %d", len(data))
	}

	lat, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return point, fmt.Errorf("error parsing latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(data[1], 64)
	if err != nil {
		return point, fmt.Errorf("error parsing longitude: %w", err)
	}

	point.Lat = lat
	point.Lng = lng
	if !geo.IsValid(point) {
		return point, core.NewUserInputError("coordinates out of range: %f, %f", lat, lng)
	}
	return point, nil
}

// ParseZoomSet parses a zoom change: [zoom]. Out-of-range values are
// clamped to the web-mercator levels hosts actually render.
func (p *Parser) ParseZoomSet(data []string) (float64, error) {
	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 1 {
		return 0, fmt.Errorf("zoom expects an arg")
	}
	zoom, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing zoom: %w", err)
	}
	if zoom < 1 {
		p.logger.Warn("Zoom below range, clamping", "zoom", zoom)
		zoom = 1
	}
	if zoom > 22 {
		p.logger.Warn("Zoom above range, clamping", "zoom", zoom)
		zoom = 22
	}
	return zoom, nil
}
