package worker

import (
	"context"
	"fmt"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/routekit/editor/v2/internal/dispatcher"
	"github.com/routekit/editor/v2/internal/influx"
	"github.com/routekit/editor/v2/internal/util"
)

// RegisterHandlers registers all bridge command handlers with the
// dispatcher. Pointer and edit commands run synchronously: the gesture
// contract depends on event order, and a buffered pointer stream could
// resolve a press after its own release.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Pointer stream - sync; moves are too frequent to log
	d.Register(":POINTER:DOWN:", m.handlePointerDown, dispatcher.Logged())
	d.Register(":POINTER:MOVE:", m.handlePointerMove)
	d.Register(":POINTER:UP:", m.handlePointerUp, dispatcher.Logged())
	d.Register(":POINTER:CANCEL:", m.handlePointerCancel, dispatcher.Logged())

	// Background clicks - sync (subject to the post-drag tap guard)
	d.Register(":MAP:CLICK:", m.handleMapClick, dispatcher.Logged())
	d.Register(":ROUTE:CLICK:", m.handleRouteClick, dispatcher.Logged())

	// Marker shortcuts - sync
	d.Register(":MARKER:DBLCLICK:", m.handleMarkerDoubleClick, dispatcher.Logged())
	d.Register(":MARKER:RIGHTCLICK:", m.handleMarkerRightClick, dispatcher.Logged())

	// Mode and history - sync
	d.Register(":MODE:SET:", m.handleModeSet, dispatcher.Logged())
	d.Register(":MODE:CYCLE:", m.handleModeCycle, dispatcher.Logged())
	d.Register(":UNDO:", m.handleUndo, dispatcher.Logged())

	// View state - sync
	d.Register(":ZOOM:SET:", m.handleZoomSet, dispatcher.Logged())

	// Session lifecycle - sync
	d.Register(":ROUTE:LOAD:", m.handleRouteLoad, dispatcher.Logged())
	d.Register(":ROUTE:COMMIT:", m.handleRouteCommit, dispatcher.Logged())
	d.Register(":ROUTE:CANCEL:", m.handleRouteCancel, dispatcher.Logged())

	// Animation - sync
	d.Register(":ANIM:START:", m.handleAnimStart, dispatcher.Logged())
	d.Register(":ANIM:STOP:", m.handleAnimStop, dispatcher.Logged())

	// Telemetry - buffered
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handlePointerDown(e dispatcher.Event) (any, error) {
	parsed, err := m.deps.Parser.ParsePointerDown(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to handle pointer down: %w", err)
	}

	m.recordBridgeLatency(e.Command, parsed.TimeMs)
	m.deps.Machine.PointerDown(parsed.Event)
	return nil, nil
}

func (m *Manager) handlePointerMove(e dispatcher.Event) (any, error) {
	parsed, err := m.deps.Parser.ParsePointerMove(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to handle pointer move: %w", err)
	}

	m.deps.Machine.PointerMove(parsed.Event)
	return nil, nil
}

func (m *Manager) handlePointerUp(e dispatcher.Event) (any, error) {
	parsed, err := m.deps.Parser.ParsePointerUp(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to handle pointer up: %w", err)
	}

	m.recordBridgeLatency(e.Command, parsed.TimeMs)
	m.deps.Machine.PointerUp(parsed.Event)
	return nil, nil
}

func (m *Manager) handlePointerCancel(e dispatcher.Event) (any, error) {
	m.deps.Machine.Cancel()
	return nil, nil
}

func (m *Manager) handleMapClick(e dispatcher.Event) (any, error) {
	point, err := m.deps.Parser.ParseLatLng(e.Args)
	if err != nil {
		m.reportIfUserInput(err)
		return nil, fmt.Errorf("failed to handle map click: %w", err)
	}

	m.deps.Machine.MapClickPoint(point)
	return nil, nil
}

func (m *Manager) handleRouteClick(e dispatcher.Event) (any, error) {
	point, err := m.deps.Parser.ParseLatLng(e.Args)
	if err != nil {
		m.reportIfUserInput(err)
		return nil, fmt.Errorf("failed to handle route click: %w", err)
	}

	m.deps.Machine.RouteClickPoint(point)
	return nil, nil
}

func (m *Manager) handleMarkerDoubleClick(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseMarkerID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to handle marker double click: %w", err)
	}

	m.deps.Machine.DoubleClick(id)
	return nil, nil
}

func (m *Manager) handleMarkerRightClick(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseMarkerID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to handle marker right click: %w", err)
	}

	m.deps.Machine.RightClick(id)
	return nil, nil
}

func (m *Manager) handleModeSet(e dispatcher.Event) (any, error) {
	mode, err := m.deps.Parser.ParseModeSet(e.Args)
	if err != nil {
		m.reportIfUserInput(err)
		return nil, fmt.Errorf("failed to set mode: %w", err)
	}

	m.deps.Editor.SetMode(mode)
	return nil, nil
}

func (m *Manager) handleModeCycle(e dispatcher.Event) (any, error) {
	mode := m.deps.Editor.CycleMode()
	return mode.String(), nil
}

func (m *Manager) handleUndo(e dispatcher.Event) (any, error) {
	m.deps.Editor.Undo()
	return nil, nil
}

func (m *Manager) handleZoomSet(e dispatcher.Event) (any, error) {
	zoom, err := m.deps.Parser.ParseZoomSet(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to set zoom: %w", err)
	}

	// Surfaces that track zoom internally take the new level; hosts
	// that report their own zoom already did.
	if zs, ok := m.deps.Surface.(zoomSetter); ok {
		zs.SetZoom(zoom)
	}
	m.deps.Editor.RefreshLabels()
	return nil, nil
}

func (m *Manager) handleRouteLoad(e dispatcher.Event) (any, error) {
	meta, points, err := m.deps.Parser.ParseRouteLoad(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}

	m.deps.Editor.Restore(meta, points)
	return nil, nil
}

func (m *Manager) handleRouteCommit(e dispatcher.Event) (any, error) {
	args, err := m.deps.Parser.ParseRouteCommit(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to commit route: %w", err)
	}

	if err := m.deps.Editor.Commit(args.Name, args.Description); err != nil {
		// The editor already reported it; the dispatcher logs it.
		return nil, fmt.Errorf("failed to commit route: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleRouteCancel(e dispatcher.Event) (any, error) {
	// An armed press must not outlive the session it was aimed at.
	m.deps.Machine.Cancel()
	m.deps.Editor.Cancel()
	return nil, nil
}

func (m *Manager) handleAnimStart(e dispatcher.Event) (any, error) {
	style, err := m.deps.Parser.ParseAnimStart(e.Args)
	if err != nil {
		m.reportIfUserInput(err)
		return nil, fmt.Errorf("failed to start animation: %w", err)
	}

	if err := m.deps.Player.Start(style, m.deps.Editor.Len()); err != nil {
		m.reportIfUserInput(err)
		return nil, fmt.Errorf("failed to start animation: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleAnimStop(e dispatcher.Event) (any, error) {
	m.deps.Player.Stop()
	return nil, nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, nil
	}

	bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to process metric: %w", err)
	}

	if err := m.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}

// recordBridgeLatency writes the host-to-engine delivery delay for a
// pointer event. Clock skew between host and engine shows up as
// negative latency and is dropped.
func (m *Manager) recordBridgeLatency(command string, timeMs int64) {
	if m.deps.Influx == nil || timeMs <= 0 {
		return
	}
	latency := time.Now().UnixMilli() - timeMs
	if latency < 0 {
		return
	}
	point := influxdb2_write.NewPointWithMeasurement("bridge_latency").
		AddTag("command", command).
		AddField("ms", latency)
	if err := m.deps.Influx.WritePoint(context.Background(), "gesture_metrics", point); err != nil {
		m.logger.Debug("bridge latency write failed", "error", err)
	}
}
