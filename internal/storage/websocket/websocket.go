package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/routekit/editor/v2/internal/geo"
	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// routeEntry is the local mirror of a streamed route.
type routeEntry struct {
	meta   core.RouteMeta
	points []core.GeoPoint
}

// Backend streams committed routes over WebSocket to a live viewer.
// The server is a write-behind archive, so LoadRoute and ListRoutes
// serve from a local mirror of everything streamed this session.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config

	mu          sync.RWMutex
	routes      map[uint]*routeEntry
	nextRouteID uint
}

// New creates a new WebSocket storage backend. A nil log manager falls
// back to the process default logger.
func New(cfg Config, logManager *logging.SlogManager) *Backend {
	logger := slog.Default()
	if logManager != nil {
		logger = logManager.Logger()
	}
	return &Backend{
		conn:   newConnection(logger),
		cfg:    cfg,
		routes: make(map[uint]*routeEntry),
	}
}

// Init connects to the WebSocket server and opens the editing session.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}
	return b.startSession()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// startSession announces the session and waits for the server ack.
// The message is cached so reconnects replay it before route traffic.
func (b *Backend) startSession() error {
	data, err := marshalEnvelope(streaming.TypeSessionStart, streaming.SessionStartPayload{
		EngineVersion: core.EngineVersion,
		StartedAt:     time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedSessionMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeSessionStart, b.timeout())
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// SaveRoute assigns an ID if the route is new, stores a mirror copy,
// and streams the route to the server without waiting for the ack.
func (b *Backend) SaveRoute(meta *core.RouteMeta, points []core.GeoPoint) error {
	b.mu.Lock()
	if meta.ID == 0 {
		b.nextRouteID++
		meta.ID = b.nextRouteID
	} else if meta.ID > b.nextRouteID {
		b.nextRouteID = meta.ID
	}
	b.routes[meta.ID] = &routeEntry{
		meta:   *meta,
		points: append([]core.GeoPoint(nil), points...),
	}
	b.mu.Unlock()

	return b.sendEnvelope(streaming.TypeSaveRoute, streaming.SaveRoutePayload{
		Meta:     *meta,
		Points:   points,
		Polyline: geo.EncodePolyline(points),
	})
}

// LoadRoute serves the route from the local mirror.
func (b *Backend) LoadRoute(id uint) (core.RouteMeta, []core.GeoPoint, error) {
	b.mu.RLock()
	entry, ok := b.routes[id]
	b.mu.RUnlock()

	if !ok {
		return core.RouteMeta{}, nil, core.ErrRouteNotFound
	}
	return entry.meta, append([]core.GeoPoint(nil), entry.points...), nil
}

// ListRoutes lists mirrored routes in ID order.
func (b *Backend) ListRoutes() ([]core.RouteMeta, error) {
	b.mu.RLock()
	metas := make([]core.RouteMeta, 0, len(b.routes))
	for _, entry := range b.routes {
		metas = append(metas, entry.meta)
	}
	b.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// DeleteRoute drops the mirror entry and tells the server to do the same.
func (b *Backend) DeleteRoute(id uint) error {
	b.mu.Lock()
	_, ok := b.routes[id]
	delete(b.routes, id)
	b.mu.Unlock()

	if !ok {
		return core.ErrRouteNotFound
	}
	return b.sendEnvelope(streaming.TypeDeleteRoute, streaming.DeleteRoutePayload{RouteID: id})
}

// PendingWrites reports messages parked behind a dead connection.
func (b *Backend) PendingWrites() int {
	return b.conn.pendingLen()
}

func (b *Backend) timeout() time.Duration {
	if b.cfg.Timeout > 0 {
		return b.cfg.Timeout
	}
	return ackTimeout
}
