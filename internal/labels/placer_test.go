package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/pkg/core"
)

func testCfg() config.LabelConfig {
	return config.LabelConfig{
		ReferenceZoom:     16,
		MinZoom:           13,
		PinStepDeg:        0.0003,
		PinThresholdDeg:   0.0005,
		PinCandidates:     4,
		TitleOffsetDeg:    0.0008,
		TitleThresholdDeg: 0.001,
		TitlePushDeg:      0.0005,
		MaxPushAttempts:   5,
	}
}

func pt(lat, lng float64) core.GeoPoint {
	return core.GeoPoint{Lat: lat, Lng: lng}
}

func TestPlace_FarApartPointsGetBaseOffsets(t *testing.T) {
	pl := NewPlacer(testCfg())

	got := pl.Place([]core.GeoPoint{pt(0, 0), pt(10, 10)}, 16, 1)

	require.Len(t, got, 2)
	for i, p := range got {
		assert.Equal(t, i, p.Index)
		assert.InDelta(t, 0.0003, p.PinLatOffset, 1e-12)
		assert.InDelta(t, 0.0011, p.LabelLatOffset, 1e-12)
	}
}

func TestPlace_CoincidentPointsSpreadApart(t *testing.T) {
	pl := NewPlacer(testCfg())

	got := pl.Place([]core.GeoPoint{pt(48.1, 11.5), pt(48.1, 11.5)}, 16, 1)

	require.Len(t, got, 2)
	// First point takes the base candidate; the second skips two
	// candidates that sit inside the pin threshold.
	assert.InDelta(t, 0.0003, got[0].PinLatOffset, 1e-12)
	assert.InDelta(t, 0.0009, got[1].PinLatOffset, 1e-12)
	assert.Greater(t, got[1].PinLatOffset-got[0].PinLatOffset, 0.0005)

	// The second label starts inside the first label's threshold and
	// gets pushed up once.
	assert.InDelta(t, 0.0011, got[0].LabelLatOffset, 1e-12)
	assert.InDelta(t, 0.0022, got[1].LabelLatOffset, 1e-12)
	assert.Greater(t, got[1].LabelLatOffset-got[0].LabelLatOffset, 0.001)
}

func TestPlace_ExhaustedCandidatesFallBackToFirst(t *testing.T) {
	cfg := testCfg()
	cfg.PinCandidates = 2
	pl := NewPlacer(cfg)

	pts := []core.GeoPoint{pt(48.1, 11.5), pt(48.1, 11.5), pt(48.1, 11.5), pt(48.1, 11.5)}
	got := pl.Place(pts, 16, 1)

	require.Len(t, got, 4)
	// With only two candidates the later points cannot clear the
	// earlier pins and fall back to the base offset.
	assert.InDelta(t, 0.0003, got[2].PinLatOffset, 1e-12)
	assert.InDelta(t, 0.0003, got[3].PinLatOffset, 1e-12)

	// Label pushes stay bounded.
	maxLabel := 0.0003 + 0.0008 + 5*0.0005
	for _, p := range got {
		assert.LessOrEqual(t, p.LabelLatOffset, maxLabel+1e-12)
	}
}

func TestPlace_OffsetsScaleWithZoom(t *testing.T) {
	pl := NewPlacer(testCfg())

	// One zoom level out doubles the geographic offsets.
	got := pl.Place([]core.GeoPoint{pt(0, 0)}, 15, 1)

	require.Len(t, got, 1)
	assert.InDelta(t, 0.0006, got[0].PinLatOffset, 1e-12)
	assert.InDelta(t, 0.0022, got[0].LabelLatOffset, 1e-12)
}

func TestPlace_BelowMinZoomSkipsResolution(t *testing.T) {
	pl := NewPlacer(testCfg())

	// Zoom 12 sits below the gate; coincident points keep identical
	// base offsets with no overlap handling.
	got := pl.Place([]core.GeoPoint{pt(48.1, 11.5), pt(48.1, 11.5)}, 12, 1)

	require.Len(t, got, 2)
	zf := 16.0 // 2^(16-12)
	assert.InDelta(t, 0.0003*zf, got[0].PinLatOffset, 1e-12)
	assert.InDelta(t, 0.0003*zf, got[1].PinLatOffset, 1e-12)
	assert.InDelta(t, (0.0003+0.0008)*zf, got[0].LabelLatOffset, 1e-12)
	assert.Equal(t, got[0].LabelLatOffset, got[1].LabelLatOffset)
}

func TestPlace_CacheSurvivesCoordinateUpdates(t *testing.T) {
	pl := NewPlacer(testCfg())

	cluster := []core.GeoPoint{pt(48.1, 11.5), pt(48.1, 11.5)}
	first := pl.Place(cluster, 16, 7)
	require.InDelta(t, 0.0009, first[1].PinLatOffset, 1e-12)

	// Same shape counter, moved points: the cached layout is reused
	// even though a fresh computation would no longer spread them.
	moved := []core.GeoPoint{pt(0, 0), pt(10, 10)}
	cached := pl.Place(moved, 16, 7)
	assert.InDelta(t, 0.0009, cached[1].PinLatOffset, 1e-12)

	// A structural edit bumps the shape counter and recomputes.
	fresh := pl.Place(moved, 16, 8)
	assert.InDelta(t, 0.0003, fresh[1].PinLatOffset, 1e-12)
}

func TestPlace_ZoomChangeRecomputes(t *testing.T) {
	pl := NewPlacer(testCfg())

	got := pl.Place([]core.GeoPoint{pt(0, 0)}, 16, 1)
	require.InDelta(t, 0.0003, got[0].PinLatOffset, 1e-12)

	got = pl.Place([]core.GeoPoint{pt(0, 0)}, 15, 1)
	assert.InDelta(t, 0.0006, got[0].PinLatOffset, 1e-12)
}

func TestPlace_LengthChangeRecomputes(t *testing.T) {
	pl := NewPlacer(testCfg())

	pl.Place([]core.GeoPoint{pt(0, 0), pt(1, 1)}, 16, 3)
	got := pl.Place([]core.GeoPoint{pt(0, 0)}, 16, 3)
	require.Len(t, got, 1)
}

func TestInvalidate(t *testing.T) {
	pl := NewPlacer(testCfg())

	cluster := []core.GeoPoint{pt(48.1, 11.5), pt(48.1, 11.5)}
	pl.Place(cluster, 16, 7)

	pl.Invalidate()

	moved := []core.GeoPoint{pt(0, 0), pt(10, 10)}
	fresh := pl.Place(moved, 16, 7)
	assert.InDelta(t, 0.0003, fresh[1].PinLatOffset, 1e-12)
}

func TestPlace_EmptyRoute(t *testing.T) {
	pl := NewPlacer(testCfg())
	assert.Empty(t, pl.Place(nil, 16, 0))
}
