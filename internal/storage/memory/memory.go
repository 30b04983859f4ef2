// internal/storage/memory/memory.go
package memory

import (
	"sort"
	"sync"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/pkg/core"
)

// RouteRecord groups a saved route's metadata with its points
type RouteRecord struct {
	Meta   core.RouteMeta
	Points []core.GeoPoint
}

// Backend stores committed routes in memory and exports each save as a
// GeoJSON file
type Backend struct {
	cfg    config.MemoryConfig
	routes map[uint]*RouteRecord // keyed by route ID

	idCounter uint

	lastExportPath string
	lastExportMeta core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		routes: make(map[uint]*RouteRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveRoute stores a committed route and writes its GeoJSON export.
// A zero meta.ID gets the next free ID assigned; a nonzero ID replaces
// the stored route in place.
func (b *Backend) SaveRoute(meta *core.RouteMeta, points []core.GeoPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if meta.ID == 0 {
		b.idCounter++
		meta.ID = b.idCounter
	} else if meta.ID > b.idCounter {
		b.idCounter = meta.ID
	}

	stored := make([]core.GeoPoint, len(points))
	copy(stored, points)

	record := &RouteRecord{
		Meta:   *meta,
		Points: stored,
	}
	b.routes[meta.ID] = record

	return b.exportGeoJSON(record)
}

// LoadRoute returns a stored route by ID
func (b *Backend) LoadRoute(id uint) (core.RouteMeta, []core.GeoPoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.routes[id]
	if !ok {
		return core.RouteMeta{}, nil, core.ErrRouteNotFound
	}

	points := make([]core.GeoPoint, len(record.Points))
	copy(points, record.Points)
	return record.Meta, points, nil
}

// ListRoutes returns metadata for all stored routes ordered by ID
func (b *Backend) ListRoutes() ([]core.RouteMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	metas := make([]core.RouteMeta, 0, len(b.routes))
	for _, record := range b.routes {
		metas = append(metas, record.Meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// DeleteRoute removes a stored route by ID
func (b *Backend) DeleteRoute(id uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.routes[id]; !ok {
		return core.ErrRouteNotFound
	}
	delete(b.routes, id)
	return nil
}

// GetExportedFilePath returns the path of the most recent GeoJSON export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the most recent GeoJSON export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
