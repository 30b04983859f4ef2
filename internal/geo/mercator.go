package geo

import (
	"math"

	"github.com/wroge/wgs84"

	"github.com/routekit/editor/v2/pkg/core"
)

// webMercatorMax is the half-extent of the EPSG:3857 plane in meters.
const webMercatorMax = 20037508.342789244

// tileSize is the side of a map tile in pixels.
const tileSize = 256.0

// Projection converts between geographic coordinates and world pixels
// at a fixed zoom level using spherical web mercator. The headless
// replay surface is built on it; hosts with a real map library use
// their own projection.
type Projection struct {
	Zoom float64
}

// Project returns the world pixel position of p at the projection's
// zoom.
func (pr Projection) Project(p core.GeoPoint) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	mx, my, _ := f(p.Lng, p.Lat, 0)
	world := tileSize * math.Exp2(pr.Zoom)
	x = (mx + webMercatorMax) / (2 * webMercatorMax) * world
	y = (webMercatorMax - my) / (2 * webMercatorMax) * world
	return x, y
}

// Unproject returns the geographic position of a world pixel at the
// projection's zoom.
func (pr Projection) Unproject(x, y float64) core.GeoPoint {
	world := tileSize * math.Exp2(pr.Zoom)
	mx := x/world*(2*webMercatorMax) - webMercatorMax
	my := webMercatorMax - y/world*(2*webMercatorMax)
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(mx, my, 0)
	return core.GeoPoint{Lat: lat, Lng: lng}
}

// MetersPerPixel returns the ground resolution at the given latitude
// and zoom level.
func MetersPerPixel(lat, zoom float64) float64 {
	return math.Cos(lat*math.Pi/180) * 2 * math.Pi * earthRadiusM / (tileSize * math.Exp2(zoom))
}

// ZoomFactor returns 2^(reference-current). Geographic offsets scale by
// it so that badges keep a constant apparent size as the map zooms.
func ZoomFactor(referenceZoom, currentZoom float64) float64 {
	return math.Exp2(referenceZoom - currentZoom)
}
