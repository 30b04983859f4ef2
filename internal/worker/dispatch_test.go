package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/editor/v2/internal/animation"
	"github.com/routekit/editor/v2/internal/cache"
	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/internal/dispatcher"
	"github.com/routekit/editor/v2/internal/editor"
	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/gesture"
	"github.com/routekit/editor/v2/internal/labels"
	"github.com/routekit/editor/v2/internal/parser"
	"github.com/routekit/editor/v2/internal/session"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// stubBackend is the minimal storage.Backend commits can land in.
type stubBackend struct {
	mu     sync.Mutex
	nextID uint
	saved  map[uint][]core.GeoPoint
}

func newStubBackend() *stubBackend {
	return &stubBackend{saved: make(map[uint][]core.GeoPoint)}
}

func (b *stubBackend) Init() error  { return nil }
func (b *stubBackend) Close() error { return nil }

func (b *stubBackend) SaveRoute(meta *core.RouteMeta, points []core.GeoPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	meta.ID = b.nextID
	b.saved[meta.ID] = append([]core.GeoPoint(nil), points...)
	return nil
}

func (b *stubBackend) LoadRoute(id uint) (core.RouteMeta, []core.GeoPoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	points, ok := b.saved[id]
	if !ok {
		return core.RouteMeta{}, nil, core.ErrRouteNotFound
	}
	return core.RouteMeta{ID: id}, points, nil
}

func (b *stubBackend) ListRoutes() ([]core.RouteMeta, error) { return nil, nil }
func (b *stubBackend) DeleteRoute(id uint) error             { return nil }

type testRig struct {
	d       *dispatcher.Dispatcher
	surf    *surface.Headless
	clock   *clock.Mock
	editor  *editor.Service
	machine *gesture.Machine
	sess    *session.Context
	backend *stubBackend
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	surf := surface.NewHeadless(16)
	sess := session.NewContext()
	mock := clock.NewMock()

	svc := editor.NewService(editor.Dependencies{
		Session:  sess,
		Registry: cache.NewPointRegistry(),
		Routes:   cache.NewRouteCache(),
		Labels: labels.NewPlacer(config.LabelConfig{
			ReferenceZoom:     16,
			MinZoom:           13,
			PinStepDeg:        0.0003,
			PinThresholdDeg:   0.0005,
			PinCandidates:     4,
			TitleOffsetDeg:    0.0008,
			TitleThresholdDeg: 0.001,
			TitlePushDeg:      0.0005,
			MaxPushAttempts:   5,
		}),
		Surface:    surf,
		Emitter:    surf,
		DefaultTag: "Run",
	})
	backend := newStubBackend()
	svc.SetBackend(backend)

	machine := gesture.New(config.GestureConfig{
		DragArm:         180 * time.Millisecond,
		DeleteArm:       1 * time.Second,
		DragRelease:     300 * time.Millisecond,
		MoveThresholdPx: 10,
	}, svc.Gestures(), surf, logger, mock)

	player := animation.NewPlayer(config.AnimationConfig{
		FrameInterval: 120 * time.Millisecond,
	}, surf, logger, mock)

	mgr := NewManager(Dependencies{
		Parser:  parser.NewParser(logger, "1.0.0", "2.0.0"),
		Machine: machine,
		Editor:  svc,
		Player:  player,
		Surface: surf,
		Emitter: surf,
	})

	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	mgr.RegisterHandlers(d)

	return &testRig{
		d:       d,
		surf:    surf,
		clock:   mock,
		editor:  svc,
		machine: machine,
		sess:    sess,
		backend: backend,
	}
}

func (r *testRig) send(t *testing.T, command string, args ...string) {
	t.Helper()
	_, err := r.d.Dispatch(dispatcher.Event{Command: command, Args: args})
	require.NoError(t, err, "command %s", command)
}

func (r *testRig) sendErr(command string, args ...string) error {
	_, err := r.d.Dispatch(dispatcher.Event{Command: command, Args: args})
	return err
}

func hasType(envs []streaming.Envelope, msgType string) bool {
	for _, e := range envs {
		if e.Type == msgType {
			return true
		}
	}
	return false
}

func TestMapClickAddsPoint(t *testing.T) {
	rig := newTestRig(t)

	rig.send(t, ":MAP:CLICK:", "48.1000", "11.5000")

	require.Equal(t, 1, rig.editor.Len())
	p := rig.editor.Points()[0]
	assert.InDelta(t, 48.1, p.Lat, 1e-9)
	assert.InDelta(t, 11.5, p.Lng, 1e-9)

	envs := rig.surf.Drain()
	assert.True(t, hasType(envs, streaming.TypePointAdded))
	assert.True(t, hasType(envs, streaming.TypeLabelsUpdated))
}

func TestRouteClickInsertsBetween(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")

	rig.send(t, ":ROUTE:CLICK:", "48.001", "11.1")

	pts := rig.editor.Points()
	require.Len(t, pts, 3)
	assert.InDelta(t, 11.1, pts[1].Lng, 1e-9)
}

func TestModeCommandsChangeDispatch(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")

	rig.send(t, ":MODE:SET:", "delete")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.19")

	pts := rig.editor.Points()
	require.Len(t, pts, 1)
	assert.InDelta(t, 11.0, pts[0].Lng, 1e-9)
}

func TestModeSetUnknownFails(t *testing.T) {
	rig := newTestRig(t)
	rig.surf.Drain()

	err := rig.sendErr(":MODE:SET:", "erase")
	require.Error(t, err)
	assert.True(t, hasType(rig.surf.Drain(), streaming.TypeInputError))
}

func TestModeCycleReturnsNewMode(t *testing.T) {
	rig := newTestRig(t)

	result, err := rig.d.Dispatch(dispatcher.Event{Command: ":MODE:CYCLE:"})
	require.NoError(t, err)
	assert.Equal(t, "add_on_route", result)
	assert.Equal(t, core.ModeAddOnRoute, rig.sess.GetMode())
}

func TestUndoCommand(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")

	rig.send(t, ":UNDO:")
	assert.Equal(t, 1, rig.editor.Len())
}

func TestHoldToDeleteThroughBridge(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")
	require.Equal(t, 2, rig.editor.Len())

	// Press marker 1, hold through the arm delay and the delete window.
	rig.send(t, ":POINTER:DOWN:", "point", "1", "100", "100", "primary", "0")
	rig.clock.Add(180 * time.Millisecond)
	assert.False(t, rig.surf.PanEnabled())
	rig.clock.Add(1 * time.Second)

	pts := rig.editor.Points()
	require.Len(t, pts, 1)
	assert.InDelta(t, 11.2, pts[0].Lng, 1e-9)
	assert.True(t, rig.surf.PanEnabled())
}

func TestDragThroughBridge(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")
	depth := rig.editor.UndoDepth()

	rig.send(t, ":POINTER:DOWN:", "point", "2", "100", "100", "primary", "0")
	rig.clock.Add(180 * time.Millisecond)
	rig.send(t, ":POINTER:MOVE:", "point", "2", "130", "100", "0")
	rig.send(t, ":POINTER:UP:", "point", "2", "135", "100", "0")

	want := rig.surf.Unproject(135, 100)
	pts := rig.editor.Points()
	assert.InDelta(t, want.Lat, pts[1].Lat, 1e-9)
	assert.InDelta(t, want.Lng, pts[1].Lng, 1e-9)

	// A drag is one gesture: nothing extra on the undo stack.
	assert.Equal(t, depth, rig.editor.UndoDepth())
	assert.True(t, rig.surf.PanEnabled())
}

func TestPointerCancelDropsPress(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")

	rig.send(t, ":POINTER:DOWN:", "point", "1", "100", "100", "primary", "0")
	rig.clock.Add(180 * time.Millisecond)
	rig.send(t, ":POINTER:CANCEL:", "point", "1")
	rig.clock.Add(5 * time.Second)

	assert.Equal(t, 2, rig.editor.Len())
	assert.Equal(t, gesture.StateIdle, rig.machine.State())
	assert.True(t, rig.surf.PanEnabled())
}

func TestMarkerShortcutsThroughBridge(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.4")

	rig.send(t, ":MARKER:RIGHTCLICK:", "2")
	require.Equal(t, 2, rig.editor.Len())

	rig.send(t, ":MARKER:DBLCLICK:", "1")
	assert.Equal(t, 3, rig.editor.Len())
}

func TestZoomSetUpdatesSurfaceAndLabels(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.surf.Drain()

	rig.send(t, ":ZOOM:SET:", "14")

	assert.Equal(t, 14.0, rig.surf.Zoom())
	envs := rig.surf.Drain()
	require.True(t, hasType(envs, streaming.TypeLabelsUpdated))
	for _, e := range envs {
		if e.Type != streaming.TypeLabelsUpdated {
			continue
		}
		var p streaming.LabelsUpdatedPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		assert.Equal(t, 14.0, p.Zoom)
	}
}

func TestRouteLoadThroughBridge(t *testing.T) {
	rig := newTestRig(t)
	encoded := geo.EncodePolyline([]core.GeoPoint{
		{Lat: 48.0, Lng: 11.0},
		{Lat: 48.1, Lng: 11.1},
		{Lat: 48.2, Lng: 11.2},
	})

	rig.send(t, ":ROUTE:LOAD:", "Isar loop", "morning run", encoded)

	assert.Equal(t, 3, rig.editor.Len())
	assert.True(t, rig.sess.Active())
	assert.Equal(t, "Isar loop", rig.sess.GetMeta().Name)
	assert.True(t, hasType(rig.surf.Drain(), streaming.TypeRouteLoaded))
}

func TestRouteCommitThroughBridge(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")

	rig.send(t, ":ROUTE:COMMIT:", "Evening loop", "easy")

	require.Len(t, rig.backend.saved, 1)
	assert.Len(t, rig.backend.saved[1], 2)
	assert.Equal(t, 0, rig.editor.Len())
	assert.False(t, rig.sess.Active())
}

func TestRouteCommitTooShortFails(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.surf.Drain()

	err := rig.sendErr(":ROUTE:COMMIT:", "Short", "")
	require.Error(t, err)
	assert.Equal(t, 1, rig.editor.Len())
	assert.True(t, hasType(rig.surf.Drain(), streaming.TypeInputError))
}

func TestRouteCancelDropsArmedPress(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")

	rig.send(t, ":POINTER:DOWN:", "point", "1", "100", "100", "primary", "0")
	rig.clock.Add(180 * time.Millisecond)
	require.Equal(t, gesture.StateArmed, rig.machine.State())

	rig.send(t, ":ROUTE:CANCEL:")

	assert.Equal(t, gesture.StateIdle, rig.machine.State())
	assert.Equal(t, 0, rig.editor.Len())
	assert.False(t, rig.sess.Active())

	// The expired delete window must not fire into the dead session.
	rig.clock.Add(5 * time.Second)
	assert.Equal(t, 0, rig.editor.Len())
}

func TestAnimationThroughBridge(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")
	rig.surf.Drain()

	rig.send(t, ":ANIM:START:", "draw")
	envs := rig.surf.Drain()
	require.True(t, hasType(envs, streaming.TypeAnimFrame))

	rig.clock.Add(120 * time.Millisecond)
	envs = rig.surf.Drain()
	assert.True(t, hasType(envs, streaming.TypeAnimFrame))
	assert.True(t, hasType(envs, streaming.TypeAnimDone))

	rig.send(t, ":ANIM:STOP:")
}

func TestAnimationEmptyRouteFails(t *testing.T) {
	rig := newTestRig(t)
	rig.surf.Drain()

	err := rig.sendErr(":ANIM:START:", "draw")
	require.Error(t, err)
	assert.True(t, hasType(rig.surf.Drain(), streaming.TypeInputError))
}

func TestAnimationUnknownStyleFails(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.surf.Drain()

	err := rig.sendErr(":ANIM:START:", "sparkle")
	require.Error(t, err)
	assert.True(t, hasType(rig.surf.Drain(), streaming.TypeInputError))
}

func TestUnknownCommandErrors(t *testing.T) {
	rig := newTestRig(t)

	err := rig.sendErr(":TELEPORT:")
	require.Error(t, err)
}

func TestMetricWithoutInfluxIsNoOp(t *testing.T) {
	rig := newTestRig(t)

	rig.send(t, ":METRIC:", "gesture_metrics", "taps", "tag::mode::add", "field::int::count::1")
}

func TestPointerClickInDeleteModeRemovesPoint(t *testing.T) {
	rig := newTestRig(t)
	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")
	rig.send(t, ":MODE:SET:", "delete")

	// Quick press and release on marker 2: a click, not a hold.
	rig.send(t, ":POINTER:DOWN:", "point", "2", "100", "100", "primary", "0")
	rig.clock.Add(50 * time.Millisecond)
	rig.send(t, ":POINTER:UP:", "point", "2", "100", "100", "0")

	pts := rig.editor.Points()
	require.Len(t, pts, 1)
	assert.InDelta(t, 11.0, pts[0].Lng, 1e-9)
}

func TestBridgeLatencyHelperToleratesNoInflux(t *testing.T) {
	rig := newTestRig(t)

	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	rig.send(t, ":POINTER:DOWN:", "map", "0", "10", "10", "primary", now)
}

// TestScriptedSessionEndToEnd replays a whole editing session through
// the dispatcher the way the replay tool does: build a route, insert,
// drag, hold-delete, undo, rezoom, commit.
func TestScriptedSessionEndToEnd(t *testing.T) {
	rig := newTestRig(t)

	rig.send(t, ":MAP:CLICK:", "48.0", "11.0")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.2")
	rig.send(t, ":MAP:CLICK:", "48.0", "11.4")
	rig.send(t, ":ROUTE:CLICK:", "48.0005", "11.3")
	require.Equal(t, 4, rig.editor.Len())

	// Drag marker 2 to a new position.
	rig.send(t, ":POINTER:DOWN:", "point", "2", "100", "100", "primary", "0")
	rig.clock.Add(180 * time.Millisecond)
	rig.send(t, ":POINTER:MOVE:", "point", "2", "130", "100", "0")
	rig.send(t, ":POINTER:UP:", "point", "2", "135", "100", "0")
	dragged := rig.surf.Unproject(135, 100)

	// Hold marker 3 through both windows to delete it.
	rig.send(t, ":POINTER:DOWN:", "point", "3", "200", "100", "primary", "0")
	rig.clock.Add(180 * time.Millisecond)
	rig.clock.Add(1 * time.Second)
	require.Equal(t, 3, rig.editor.Len())

	rig.send(t, ":UNDO:")
	pts := rig.editor.Points()
	require.Len(t, pts, 4)
	assert.InDelta(t, dragged.Lat, pts[1].Lat, 1e-9)
	assert.InDelta(t, dragged.Lng, pts[1].Lng, 1e-9)
	assert.InDelta(t, 11.4, pts[3].Lng, 1e-9)

	rig.send(t, ":ZOOM:SET:", "15")
	rig.send(t, ":ROUTE:COMMIT:", "Scripted loop", "dispatcher replay")

	require.Len(t, rig.backend.saved, 1)
	assert.Len(t, rig.backend.saved[1], 4)
	assert.Equal(t, 0, rig.editor.Len())
	assert.False(t, rig.sess.Active())
	assert.Equal(t, gesture.StateIdle, rig.machine.State())
	assert.True(t, rig.surf.PanEnabled())

	envs := rig.surf.Drain()
	for _, want := range []string{
		streaming.TypePointAdded,
		streaming.TypePointInserted,
		streaming.TypePointMoved,
		streaming.TypePointDeleted,
		streaming.TypeRouteReplaced,
		streaming.TypeLabelsUpdated,
		streaming.TypeCommitResult,
	} {
		assert.True(t, hasType(envs, want), "missing %s", want)
	}
	for _, e := range envs {
		if e.Type != streaming.TypeCommitResult {
			continue
		}
		var p streaming.CommitResultPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		assert.Equal(t, uint(1), p.RouteID)
		assert.Equal(t, "Scripted loop", p.Name)
		assert.Equal(t, 4, p.Points)
		assert.Empty(t, p.Error)
	}
}
