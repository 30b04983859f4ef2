// Package editor owns the in-progress route and applies every edit
// operation to it: appends, on-route inserts, drags, deletes, round
// trips, and undo. Each operation updates the point registry, refreshes
// badge labels, and reports the result to the host surface.
package editor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/routekit/editor/v2/internal/cache"
	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/labels"
	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/internal/session"
	"github.com/routekit/editor/v2/internal/storage"
	"github.com/routekit/editor/v2/internal/util"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"
)

// Dependencies holds all collaborators the editing engine drives
type Dependencies struct {
	LogManager *logging.SlogManager
	Session    *session.Context
	Registry   *cache.PointRegistry
	Routes     *cache.RouteCache
	Labels     *labels.Placer
	Surface    surface.Surface
	Emitter    surface.Emitter
	DefaultTag string
}

// Stats counts the edits applied during the current session
type Stats struct {
	Adds       uint64
	Inserts    uint64
	Moves      uint64
	Deletes    uint64
	RoundTrips uint64
	Undos      uint64
}

// Service applies edit operations to the working route
type Service struct {
	deps    Dependencies
	logger  *slog.Logger
	backend storage.Backend

	mu    sync.Mutex
	route *core.Route
	undo  *core.UndoStack
	stats Stats
}

// NewService creates a new editing service over an empty route
func NewService(deps Dependencies) *Service {
	logger := slog.Default()
	if deps.LogManager != nil {
		logger = deps.LogManager.Logger()
	}
	return &Service{
		deps:   deps,
		logger: logger,
		route:  core.NewRoute(),
		undo:   core.NewUndoStack(),
	}
}

// SetBackend sets the storage backend used by Load and Commit
func (s *Service) SetBackend(b storage.Backend) {
	s.backend = b
}

// AddPoint appends a point to the end of the route.
func (s *Service) AddPoint(p core.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(p)
}

// InsertOnRoute splices a point into the segment it sits closest to.
// With fewer than two points there is no segment and it appends.
func (s *Service) InsertOnRoute(p core.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(p)
}

// MovePoint replaces the coordinates at index in place. Stale indices
// are ignored. Moves push nothing onto the undo stack: a drag streams
// dozens of them and only the gesture's net effect matters.
func (s *Service) MovePoint(index int, lat, lng float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveLocked(index, lat, lng)
}

// DeletePoint removes the point at index. Stale indices are ignored.
func (s *Service) DeletePoint(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(index)
}

// RoundTripTo appends the reverse path from the route's end back to
// index, producing an out-and-back ending at the original point.
func (s *Service) RoundTripTo(index int) error {
	s.mu.Lock()
	err := s.roundTripLocked(index)
	s.mu.Unlock()
	s.reportUserError(err)
	return err
}

// Undo restores the most recent snapshot. With an empty history it
// removes the last point instead.
func (s *Service) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.undo.Pop(); ok {
		s.route.Replace(snap)
		s.deps.Registry.ReplaceAll(len(snap))
		s.stats.Undos++
		s.logger.Debug("undo applied", "points", len(snap), "remaining", s.undo.Len())
		s.emitRouteLocked(streaming.TypeRouteReplaced)
		s.emitLabelsLocked()
		return
	}

	last := s.route.Len() - 1
	if last < 0 {
		return
	}
	id, _ := s.deps.Registry.IDAt(last)
	s.route.RemoveAt(last)
	s.deps.Registry.RemoveAt(last)
	s.stats.Undos++
	s.logger.Debug("undo with empty history, removed last point", "index", last)
	s.emit(streaming.TypePointDeleted, streaming.PointDeletedPayload{ID: id, Index: last})
	s.emitLabelsLocked()
}

// Tap applies the current editing mode to a tap on the map background.
func (s *Service) Tap(p core.GeoPoint) {
	switch s.deps.Session.GetMode() {
	case core.ModeAdd:
		s.AddPoint(p)
	case core.ModeAddOnRoute:
		s.InsertOnRoute(p)
	case core.ModeDelete:
		s.deleteNearest(p)
	case core.ModeRoundTrip:
		s.roundTripNearest(p)
	}
}

// TapRoute applies the mode to a click on the route line itself. In
// both add modes a line click means "insert here"; the point-directed
// modes resolve the nearest point exactly as a plain tap does.
func (s *Service) TapRoute(p core.GeoPoint) {
	switch s.deps.Session.GetMode() {
	case core.ModeAdd, core.ModeAddOnRoute:
		s.InsertOnRoute(p)
	case core.ModeDelete:
		s.deleteNearest(p)
	case core.ModeRoundTrip:
		s.roundTripNearest(p)
	}
}

// SetMode switches the global editing mode.
func (s *Service) SetMode(mode core.EditingMode) {
	s.deps.Session.SetMode(mode)
	s.logger.Debug("mode set", "mode", mode.String())
	s.emit(streaming.TypeModeChanged, streaming.ModePayload{Mode: mode.String()})
}

// CycleMode advances the editing mode and returns the new one.
func (s *Service) CycleMode() core.EditingMode {
	mode := s.deps.Session.CycleMode()
	s.logger.Debug("mode cycled", "mode", mode.String())
	s.emit(streaming.TypeModeChanged, streaming.ModePayload{Mode: mode.String()})
	return mode
}

// StartSession begins a fresh editing session over an empty route.
func (s *Service) StartSession(name string) {
	meta := core.RouteMeta{Name: name, Tag: s.deps.DefaultTag}
	if meta.Name == "" {
		meta.Name = "Untitled route"
	}

	s.mu.Lock()
	s.resetLocked()
	s.deps.Session.Begin(meta, time.Now())
	s.emitRouteLocked(streaming.TypeRouteReplaced)
	s.emitLabelsLocked()
	s.mu.Unlock()

	s.logger.Info("session started", "name", meta.Name, "tag", meta.Tag)
}

// Load replaces the working route with a stored one and begins an
// editing session over it.
func (s *Service) Load(id uint) error {
	if s.backend == nil {
		return fmt.Errorf("no storage backend configured")
	}
	meta, points, err := s.backend.LoadRoute(id)
	if err != nil {
		s.logger.Error("load route failed", "id", id, "error", err)
		s.emit(streaming.TypeInputError, streaming.InputErrorPayload{Reason: fmt.Sprintf("could not load route %d", id)})
		return err
	}

	s.restore(meta, points)
	s.logger.Info("route loaded", "id", id, "name", meta.Name, "points", len(points))
	return nil
}

// Restore replaces the working route with one pushed by the host and
// begins an editing session over it. Nothing is read from storage; the
// host already holds the data.
func (s *Service) Restore(meta core.RouteMeta, points []core.GeoPoint) {
	if meta.Tag == "" {
		meta.Tag = s.deps.DefaultTag
	}
	s.restore(meta, points)
	s.logger.Info("route restored", "name", meta.Name, "points", len(points))
}

func (s *Service) restore(meta core.RouteMeta, points []core.GeoPoint) {
	s.mu.Lock()
	s.resetLocked()
	s.route.Replace(points)
	s.deps.Registry.ReplaceAll(len(points))
	s.deps.Session.Begin(meta, time.Now())
	if s.deps.Routes != nil && meta.ID != 0 {
		s.deps.Routes.Add(cache.CachedRoute{Meta: meta, Points: points})
	}
	s.emitRouteLocked(streaming.TypeRouteLoaded)
	s.emitLabelsLocked()
	s.mu.Unlock()
}

// Commit hands the finished route to storage. On success the working
// route, undo history, and session are cleared.
func (s *Service) Commit(name, description string) error {
	s.mu.Lock()
	points := s.route.Points()
	s.mu.Unlock()

	meta := s.deps.Session.GetMeta()
	if name != "" {
		meta.Name = name
	}
	if description != "" {
		meta.Description = description
	}
	if meta.Tag == "" {
		meta.Tag = s.deps.DefaultTag
	}

	if len(points) < 2 {
		err := core.NewUserInputError("cannot save a route with fewer than 2 points")
		s.reportUserError(err)
		return err
	}
	if s.backend == nil {
		return fmt.Errorf("no storage backend configured")
	}

	distance := geo.RouteDistance(points)
	result := streaming.CommitResultPayload{
		Name:      meta.Name,
		Points:    len(points),
		DistanceM: distance,
	}
	if err := s.backend.SaveRoute(&meta, points); err != nil {
		result.Error = err.Error()
		s.emit(streaming.TypeCommitResult, result)
		s.logger.Error("commit failed", "name", meta.Name, "error", err)
		return err
	}
	result.RouteID = meta.ID

	s.mu.Lock()
	if s.deps.Routes != nil {
		s.deps.Routes.Add(cache.CachedRoute{Meta: meta, Points: points})
	}
	s.resetLocked()
	s.deps.Session.End()
	s.emit(streaming.TypeCommitResult, result)
	s.emitRouteLocked(streaming.TypeRouteReplaced)
	s.emitLabelsLocked()
	s.mu.Unlock()

	s.logger.Info("route committed",
		"id", meta.ID,
		"name", meta.Name,
		"points", len(points),
		"distance", util.FormatDistance(distance))
	return nil
}

// Cancel discards the editing session: route, undo history, point
// identities, and the session itself.
func (s *Service) Cancel() {
	s.mu.Lock()
	s.resetLocked()
	s.deps.Session.End()
	s.emitRouteLocked(streaming.TypeRouteReplaced)
	s.emitLabelsLocked()
	s.mu.Unlock()

	s.logger.Info("session cancelled")
}

// EmitRoute pushes the full current route to the host, for initial
// sync after a reconnect.
func (s *Service) EmitRoute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitRouteLocked(streaming.TypeRouteLoaded)
	s.emitLabelsLocked()
}

// RefreshLabels recomputes and re-emits badge placements, typically
// after a zoom change.
func (s *Service) RefreshLabels() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLabelsLocked()
}

// Points returns a copy of the working route's points.
func (s *Service) Points() []core.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Points()
}

// Len returns the working route's point count.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route.Len()
}

// UndoDepth returns the number of stored undo snapshots.
func (s *Service) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo.Len()
}

// Stats returns a copy of the session's edit counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) addLocked(p core.GeoPoint) {
	s.undo.Push(s.route)
	p = stamp(p)
	s.route.Append(p)
	id := s.deps.Registry.Append()
	s.stats.Adds++
	index := s.route.Len() - 1
	s.logger.Debug("point added", "id", id, "index", index)
	s.emit(streaming.TypePointAdded, streaming.PointPayload{ID: id, Index: index, Point: p})
	s.emitLabelsLocked()
}

func (s *Service) insertLocked(p core.GeoPoint) {
	s.undo.Push(s.route)
	p = stamp(p)
	index := geo.NearestInsertionIndex(s.route.Points(), p)
	s.route.InsertAt(index, p)
	id := s.deps.Registry.InsertAt(index)
	s.stats.Inserts++
	s.logger.Debug("point inserted", "id", id, "index", index)
	s.emit(streaming.TypePointInserted, streaming.PointPayload{ID: id, Index: index, Point: p})
	s.emitLabelsLocked()
}

func (s *Service) moveLocked(index int, lat, lng float64) {
	cur, ok := s.route.At(index)
	if !ok {
		return
	}
	cur.Lat = lat
	cur.Lng = lng
	cur.Timestamp = time.Now().UnixMilli()
	s.route.ReplaceAt(index, cur)
	s.stats.Moves++
	id, _ := s.deps.Registry.IDAt(index)
	s.emit(streaming.TypePointMoved, streaming.PointPayload{ID: id, Index: index, Point: cur})
	s.emitLabelsLocked()
}

func (s *Service) deleteLocked(index int) {
	if _, ok := s.route.At(index); !ok {
		return
	}
	id, _ := s.deps.Registry.IDAt(index)
	s.undo.Push(s.route)
	s.route.RemoveAt(index)
	s.deps.Registry.RemoveAt(index)
	s.stats.Deletes++
	s.logger.Debug("point deleted", "id", id, "index", index)
	s.emit(streaming.TypePointDeleted, streaming.PointDeletedPayload{ID: id, Index: index})
	s.emitLabelsLocked()
}

func (s *Service) roundTripLocked(index int) error {
	n := s.route.Len()
	if n < 2 {
		return core.NewUserInputError("round trip needs at least 2 points, have %d", n)
	}
	if index < 0 || index >= n {
		return nil
	}

	s.undo.Push(s.route)
	pts := s.route.Points()
	target := index
	if index == n-1 {
		// From the end point the trip retraces the whole route.
		target = 0
	}
	for i := n - 2; i >= target; i-- {
		s.route.Append(pts[i].Restamp())
		s.deps.Registry.Append()
	}
	s.stats.RoundTrips++
	s.logger.Debug("round trip added", "from", index, "points", s.route.Len())
	s.emitRouteLocked(streaming.TypeRouteReplaced)
	s.emitLabelsLocked()
	return nil
}

func (s *Service) deleteNearest(p core.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, _ := geo.NearestPointIndex(s.route.Points(), p)
	s.deleteLocked(index)
}

func (s *Service) roundTripNearest(p core.GeoPoint) {
	s.mu.Lock()
	index, _ := geo.NearestPointIndex(s.route.Points(), p)
	err := s.roundTripLocked(index)
	s.mu.Unlock()
	s.reportUserError(err)
}

// resetLocked clears the route and everything keyed to it.
func (s *Service) resetLocked() {
	s.route.Clear()
	s.undo.Clear()
	s.deps.Registry.Reset()
	if s.deps.Labels != nil {
		s.deps.Labels.Invalidate()
	}
	s.stats = Stats{}
}

func (s *Service) emitRouteLocked(msgType string) {
	pts := s.route.Points()
	s.emit(msgType, streaming.RoutePayload{
		Meta:      s.deps.Session.GetMeta(),
		IDs:       s.deps.Registry.IDs(),
		Points:    pts,
		DistanceM: geo.RouteDistance(pts),
	})
}

// emitLabelsLocked resolves badge offsets against current positions
// and pushes the layout. The placer caches across coordinate-only
// updates, so calling this on every mutation stays cheap.
func (s *Service) emitLabelsLocked() {
	if s.deps.Labels == nil || s.deps.Surface == nil {
		return
	}
	pts := s.route.Points()
	zoom := s.deps.Surface.Zoom()
	placements := s.deps.Labels.Place(pts, zoom, s.route.Shape())
	dists := geo.CumulativeDistances(pts)
	out := make([]streaming.LabelPlacement, 0, len(placements))
	for _, pl := range placements {
		if pl.Index >= len(pts) {
			continue
		}
		p := pts[pl.Index]
		out = append(out, streaming.LabelPlacement{
			Index:    pl.Index,
			PinLat:   p.Lat + pl.PinLatOffset,
			PinLng:   p.Lng,
			LabelLat: p.Lat + pl.LabelLatOffset,
			LabelLng: p.Lng,
			Text:     util.FormatDistance(dists[pl.Index]),
		})
	}
	s.emit(streaming.TypeLabelsUpdated, streaming.LabelsUpdatedPayload{Zoom: zoom, Placements: out})
}

func (s *Service) emit(msgType string, payload any) {
	if s.deps.Emitter == nil {
		return
	}
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		s.logger.Error("encode message failed", "type", msgType, "error", err)
		return
	}
	s.deps.Emitter.Emit(env)
}

// reportUserError surfaces recoverable input problems to the host and
// swallows nothing else.
func (s *Service) reportUserError(err error) {
	if err == nil {
		return
	}
	if core.IsUserInput(err) {
		s.logger.Info("rejected input", "reason", err.Error())
		s.emit(streaming.TypeInputError, streaming.InputErrorPayload{Reason: err.Error()})
		return
	}
	s.logger.Error("operation failed", "error", err)
}

// stamp fills in the insertion timestamp when the caller left it zero.
func stamp(p core.GeoPoint) core.GeoPoint {
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().UnixMilli()
	}
	return p
}
