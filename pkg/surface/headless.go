package surface

import (
	"sync"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
)

// Headless is a Surface with no rendering, backed by a web-mercator
// projection. The replay tool drives the engine with it, and it
// collects emitted envelopes for inspection.
type Headless struct {
	mu         sync.Mutex
	projection geo.Projection
	panEnabled bool
	emitted    []streaming.Envelope
}

// NewHeadless creates a headless surface at the given zoom level.
func NewHeadless(zoom float64) *Headless {
	return &Headless{
		projection: geo.Projection{Zoom: zoom},
		panEnabled: true,
	}
}

func (h *Headless) Unproject(x, y float64) core.GeoPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.projection.Unproject(x, y)
}

func (h *Headless) Project(p core.GeoPoint) (x, y float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.projection.Project(p)
}

func (h *Headless) Zoom() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.projection.Zoom
}

// SetZoom changes the zoom level, as a host would when the user zooms.
func (h *Headless) SetZoom(zoom float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.projection.Zoom = zoom
}

func (h *Headless) SetPanEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panEnabled = enabled
}

// PanEnabled reports the last pan state the engine requested.
func (h *Headless) PanEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.panEnabled
}

// Emit records an outbound envelope.
func (h *Headless) Emit(e streaming.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitted = append(h.emitted, e)
}

// Drain returns all envelopes emitted since the last call.
func (h *Headless) Drain() []streaming.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.emitted
	h.emitted = nil
	return out
}
