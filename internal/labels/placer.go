// Package labels computes non-colliding pin and label offsets for the
// points of a route. Offsets are latitude deltas in degrees, scaled
// inversely with zoom so the layout keeps the same pixel spacing at
// any zoom level.
package labels

import (
	"sync"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/pkg/core"
)

// Placement holds the latitude offsets, in degrees, that position one
// point's pin and label. Offsets are relative to the point itself, so
// a cached placement stays attached to a point while a drag moves it.
type Placement struct {
	Index          int
	PinLatOffset   float64
	LabelLatOffset float64
}

// Placer lays out pins and labels, caching the result against the
// route's shape counter and the zoom level. The layout scan is
// quadratic in point count, so coordinate-only updates (drags) must
// reuse the cache; only structural edits and zoom changes recompute.
type Placer struct {
	cfg config.LabelConfig

	mu          sync.Mutex
	cachedShape uint64
	cachedZoom  float64
	cached      []Placement
	valid       bool
}

// NewPlacer builds a placer with the given geometry settings.
func NewPlacer(cfg config.LabelConfig) *Placer {
	return &Placer{cfg: cfg}
}

// Place returns one placement per point, in point order.
func (pl *Placer) Place(points []core.GeoPoint, zoom float64, shape uint64) []Placement {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.valid && pl.cachedShape == shape && pl.cachedZoom == zoom && len(pl.cached) == len(points) {
		return pl.cached
	}
	pl.cached = pl.compute(points, zoom)
	pl.cachedShape = shape
	pl.cachedZoom = zoom
	pl.valid = true
	return pl.cached
}

// Invalidate drops the cached layout. Loading a route and cancelling a
// session call this so the next Place recomputes from scratch.
func (pl *Placer) Invalidate() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.valid = false
	pl.cached = nil
}

func (pl *Placer) compute(points []core.GeoPoint, zoom float64) []Placement {
	out := make([]Placement, len(points))
	zf := geo.ZoomFactor(pl.cfg.ReferenceZoom, zoom)
	pinStep := pl.cfg.PinStepDeg * zf
	basePin := pinStep
	titleOffset := pl.cfg.TitleOffsetDeg * zf

	if zoom < pl.cfg.MinZoom {
		// Far enough out, degree-space distances say nothing about
		// pixel overlap and the quadratic scan is wasted work. Every
		// point takes the base offsets.
		for i := range points {
			out[i] = Placement{
				Index:          i,
				PinLatOffset:   basePin,
				LabelLatOffset: basePin + titleOffset,
			}
		}
		return out
	}

	pinThreshold := pl.cfg.PinThresholdDeg * zf
	titleThreshold := pl.cfg.TitleThresholdDeg * zf
	titlePush := pl.cfg.TitlePushDeg * zf

	placedPins := make([]core.GeoPoint, 0, len(points))
	placedLabels := make([]core.GeoPoint, 0, len(points))

	for i, p := range points {
		pinOff := basePin
		for c := 0; c < pl.cfg.PinCandidates; c++ {
			cand := basePin + float64(c)*pinStep
			if clears(core.GeoPoint{Lat: p.Lat + cand, Lng: p.Lng}, placedPins, pinThreshold) {
				pinOff = cand
				break
			}
		}
		placedPins = append(placedPins, core.GeoPoint{Lat: p.Lat + pinOff, Lng: p.Lng})

		labelOff := pinOff + titleOffset
		for attempt := 0; attempt < pl.cfg.MaxPushAttempts; attempt++ {
			if clears(core.GeoPoint{Lat: p.Lat + labelOff, Lng: p.Lng}, placedLabels, titleThreshold) {
				break
			}
			labelOff += titlePush
		}
		placedLabels = append(placedLabels, core.GeoPoint{Lat: p.Lat + labelOff, Lng: p.Lng})

		out[i] = Placement{Index: i, PinLatOffset: pinOff, LabelLatOffset: labelOff}
	}
	return out
}

// clears reports whether pos keeps more than threshold of planar
// distance from every already placed position.
func clears(pos core.GeoPoint, placed []core.GeoPoint, threshold float64) bool {
	for _, q := range placed {
		if geo.PlanarDistance(pos, q) <= threshold {
			return false
		}
	}
	return true
}
